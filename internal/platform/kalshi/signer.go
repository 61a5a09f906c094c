package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Signer produces Kalshi API request signatures. Kalshi authenticates each
// request with an RSA-PSS-SHA256 signature over the string
// timestamp + method + path, where timestamp is unix milliseconds.
//
// PSS signatures are randomized, so two signatures over the same message
// differ, but both verify against the public key.
type Signer struct {
	key *rsa.PrivateKey
}

// NewSigner wraps an already-parsed RSA private key.
func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// NewSignerFromPEM parses a PEM-encoded RSA private key. PKCS#8 is tried
// first, then PKCS#1, matching the two formats Kalshi hands out.
func NewSignerFromPEM(pemBytes []byte) (*Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("kalshi: no PEM block in private key: %w", domain.ErrSigningFailed)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return nil, fmt.Errorf("kalshi: parse private key (pkcs8: %v, pkcs1: %v): %w",
				err, pkcs1Err, domain.ErrSigningFailed)
		}
		return &Signer{key: pkcs1Key}, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("kalshi: expected RSA private key, got %T: %w", key, domain.ErrSigningFailed)
	}
	return &Signer{key: rsaKey}, nil
}

// NewSignerFromFile loads a PEM-encoded RSA private key from disk.
func NewSignerFromFile(path string) (*Signer, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kalshi: read private key %s: %w", path, domain.ErrSigningFailed)
	}
	return NewSignerFromPEM(pemBytes)
}

// Sign produces the signature and timestamp headers for one request. The
// timestamp is taken at call time because Kalshi rejects signatures more than
// a few seconds old; callers must sign immediately before sending.
func (s *Signer) Sign(method, path string, now time.Time) (signature, timestamp string, err error) {
	if s == nil || s.key == nil {
		return "", "", fmt.Errorf("kalshi: RSA private key not configured: %w", domain.ErrSigningFailed)
	}

	ts := strconv.FormatInt(now.UnixMilli(), 10)
	message := ts + method + path

	hash := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", "", fmt.Errorf("kalshi: RSA sign: %w", domain.ErrSigningFailed)
	}

	return base64.StdEncoding.EncodeToString(sig), ts, nil
}
