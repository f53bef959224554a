package proofstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ManuelReschke/PrimePass/internal/pkg/env"
)

// Config selects and configures the proof backend.
type Config struct {
	LocalDir        string
	S3Enabled       bool
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // optional, for S3-compatible services
}

// LoadConfig reads PROOF_DIR and the S3_* variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		LocalDir:        env.GetEnv("PROOF_DIR", "./uploads/proofs"),
		S3Enabled:       env.GetEnvBool("S3_PROOFS_ENABLED", false),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}
	if cfg.S3Enabled {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when S3 proofs are enabled")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when S3 proofs are enabled")
		}
	}
	return cfg, nil
}

// New builds the configured store.
func New(cfg *Config) (Store, error) {
	if cfg.S3Enabled {
		s, err := NewS3Store(cfg)
		if err != nil {
			return nil, fmt.Errorf("init s3 proof store: %w", err)
		}
		return s, nil
	}
	return NewLocalStore(cfg.LocalDir, uuid.NewString)
}
