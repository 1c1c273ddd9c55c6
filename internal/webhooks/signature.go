package webhooks

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"log"
	"os"
)

// platformPublicKeyPEM is the upstream platform's published signing key
// for event webhooks. Override with PLATFORM_PUBLIC_KEY when pointing at
// a staging platform.
const platformPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIICIjANBgkqhkiG9w0BAQEFAAOCAg8AMIICCgKCAgEAokvo/r9tVgcfZ5DysOSC
Frm602qYV0MaAiNnX9O8KxMbiyRKWeL9JpCpVpt4XHIcBOK4u3cLSqJGOLaPuXw6
dO0t6Q/ZVdAV5Phz+ZtzPL16iCGeK9po6D6JHBpbi989mmzMryUnQJezlYJ3DVfB
csedpinheNnyYeFXolrJvcsjDtfAeRx5ByHQmTnSdFUzuAnC9/GepgLT9SM4nCpvu
xmZMxrJt5Rw+VUaQ9B8JSvbMPpez4peKaJPZHBbU3OdeCVx5klVXXZQGNHOs8gF3
kvoV5rTnXV0IknLBXlcKKAQLZcY/Q9rG6Ifi9c+5vqlvHPCUJFT5XUGG5RKgOKUJ
062fRtN+rLYZUV+BjafxQauvC8wSWeYja63VSUruvmNj8xkx2zE/Juc+yjLjTXpI
ocmaiFeAO6fUtNjDeFVkhf5LNb59vECyrHD2SQIrhgXpO4Q3dVNA5rw576PwTzNh
/AMfHKIjE4xQA1SZuYJmNnmVZLIZBlQAF9Ntd03rfadZ+yDiOXCCs9FkHibELhCH
ULgCsnuDJHcrGNd5/Ddm5hxGQ0ASitgHeMZ0kcIOwKDOzOU53lDza6/Y09T7sYJP
Qe7z0cvj7aE4B+Ax1ZoZGPzpJlZtGXCsu9aTEGEnKzmsFqwcSsnw3JB31IGKAykT
1hhTiaCeIY/OwwwNUY2yvcCAwEAAQ==
-----END PUBLIC KEY-----`

// SignatureVerifier checks the detached RSA-SHA256 signature the
// platform sends alongside each event webhook.
type SignatureVerifier struct {
	key *rsa.PublicKey
}

func NewSignatureVerifier(pemBytes []byte) (*SignatureVerifier, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return &SignatureVerifier{key: rsaKey}, nil
}

// NewSignatureVerifierFromEnv loads PLATFORM_PUBLIC_KEY or falls back to
// the embedded platform key. A key that fails to parse yields a verifier
// that rejects everything rather than an error at startup.
func NewSignatureVerifierFromEnv() *SignatureVerifier {
	pemStr := os.Getenv("PLATFORM_PUBLIC_KEY")
	if pemStr == "" {
		pemStr = platformPublicKeyPEM
	}
	v, err := NewSignatureVerifier([]byte(pemStr))
	if err != nil {
		log.Printf("webhooks: platform public key unusable, all signed events will be rejected: %v", err)
		return &SignatureVerifier{}
	}
	return v
}

// Verify reports whether signature (base64, PKCS#1 v1.5 over SHA-256) is
// valid for the exact raw body bytes. Any failure, including a malformed
// token, is reported as false and never as an error.
func (v *SignatureVerifier) Verify(rawBody []byte, signature string) bool {
	if v == nil || v.key == nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		log.Printf("webhooks: malformed signature token: %v", err)
		return false
	}
	sum := sha256.Sum256(rawBody)
	return rsa.VerifyPKCS1v15(v.key, crypto.SHA256, sum[:], sig) == nil
}
