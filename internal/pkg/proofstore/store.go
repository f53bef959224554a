package proofstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	refLocal = "local://"
	refS3    = "s3://"
)

var ErrNotFound = errors.New("proof not found")

// Store keeps proof-of-payment artifacts and returns an opaque reference
// that review requests record.
type Store interface {
	Put(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ObjectKey builds proofs/YYYY/MM/<user>/<name><ext>.
func ObjectKey(userID, name, contentType string, at time.Time) string {
	return fmt.Sprintf("proofs/%04d/%02d/%s/%s%s", at.Year(), int(at.Month()), sanitize(userID), name, Extension(contentType))
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// LocalStore writes proofs below a directory.
type LocalStore struct {
	root  string
	now   func() time.Time
	newID func() string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string, newID func() string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create proof directory %s: %w", root, err)
	}
	return &LocalStore{root: root, now: time.Now, newID: newID}, nil
}

func (s *LocalStore) Put(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := ObjectKey(userID, s.newID(), contentType, s.now().UTC())
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create proof directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	written, err := io.Copy(f, io.LimitReader(body, MaxProofSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxProofSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return refLocal + key, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, ok := strings.CutPrefix(ref, refLocal)
	if !ok || strings.Contains(key, "..") {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return f, err
}
