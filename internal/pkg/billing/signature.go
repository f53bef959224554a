package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const (
	SignatureHeader     = "X-Daimo-Signature"
	AuthorizationHeader = "Authorization"
)

// VerifyWebhookSignature checks a hex HMAC-SHA256 of the exact raw body.
// A "sha256=" prefix on the header is accepted.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}
	if i := strings.Index(sig, "="); i > 0 && strings.EqualFold(sig[:i], "sha256") {
		sig = sig[i+1:]
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil || len(decodedSig) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

// VerifyBasicToken checks "Authorization: Basic <token>" against the shared token.
func VerifyBasicToken(authorizationHeader, token string) bool {
	expected := strings.TrimSpace(token)
	auth := strings.TrimSpace(authorizationHeader)
	if expected == "" || auth == "" {
		return false
	}
	scheme, got, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "basic") {
		return false
	}
	got = strings.TrimSpace(got)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// Authenticator picks the verification mode from configuration: HMAC
// signature when a secret is set, otherwise the Basic token. With neither
// configured every request fails.
type Authenticator struct {
	Secret string
	Token  string
}

// Authenticate verifies the request before anything parses the body.
func (a Authenticator) Authenticate(rawBody []byte, signatureHeader, authorizationHeader string) bool {
	if strings.TrimSpace(a.Secret) != "" {
		return VerifyWebhookSignature(rawBody, signatureHeader, a.Secret)
	}
	if strings.TrimSpace(a.Token) != "" {
		return VerifyBasicToken(authorizationHeader, a.Token)
	}
	return false
}

// SignPayload returns the hex signature the processor would send for payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
