package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestSignVerifiesAgainstPublicKey(t *testing.T) {
	key := testKey(t)
	signer := NewSigner(key)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sig, ts, err := signer.Sign("GET", "/trade-api/v2/markets/FED-24MAR-CUT/orderbook", now)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if ts != "1772366400000" {
		t.Errorf("timestamp = %q, want unix millis 1772366400000", ts)
	}

	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("signature is not base64: %v", err)
	}
	message := ts + "GET" + "/trade-api/v2/markets/FED-24MAR-CUT/orderbook"
	hash := sha256.Sum256([]byte(message))
	err = rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], raw, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		t.Errorf("VerifyPSS: %v", err)
	}
}

func TestNewSignerFromPEMFormats(t *testing.T) {
	key := testKey(t)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		pem  []byte
	}{
		{"pkcs8", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})},
		{"pkcs1", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})},
	}
	for _, tt := range tests {
		signer, err := NewSignerFromPEM(tt.pem)
		if err != nil {
			t.Errorf("%s: NewSignerFromPEM() error = %v", tt.name, err)
			continue
		}
		if _, _, err := signer.Sign("GET", "/x", time.Now()); err != nil {
			t.Errorf("%s: Sign() error = %v", tt.name, err)
		}
	}
}

func TestNewSignerFromPEMRejectsGarbage(t *testing.T) {
	_, err := NewSignerFromPEM([]byte("not a pem block"))
	if !errors.Is(err, domain.ErrSigningFailed) {
		t.Errorf("error = %v, want ErrSigningFailed", err)
	}
}

func TestSignWithoutKey(t *testing.T) {
	var signer *Signer
	_, _, err := signer.Sign("GET", "/x", time.Now())
	if !errors.Is(err, domain.ErrSigningFailed) {
		t.Errorf("error = %v, want ErrSigningFailed", err)
	}
}
