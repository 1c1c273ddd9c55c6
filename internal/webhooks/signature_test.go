package webhooks

import (
    "crypto"
    "crypto/rand"
    "crypto/rsa"
    "crypto/sha256"
    "crypto/x509"
    "encoding/base64"
    "encoding/pem"
    "testing"
)

func testKeyPair(t *testing.T) (*rsa.PrivateKey, *SignatureVerifier) {
    t.Helper()
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil { t.Fatalf("generate key: %v", err) }
    der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
    if err != nil { t.Fatalf("marshal public key: %v", err) }
    pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
    v, err := NewSignatureVerifier(pemBytes)
    if err != nil { t.Fatalf("NewSignatureVerifier: %v", err) }
    return priv, v
}

func sign(t *testing.T, priv *rsa.PrivateKey, body []byte) string {
    t.Helper()
    sum := sha256.Sum256(body)
    sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, sum[:])
    if err != nil { t.Fatalf("sign: %v", err) }
    return base64.StdEncoding.EncodeToString(sig)
}

func TestVerifyValidSignature(t *testing.T) {
    priv, v := testKeyPair(t)
    body := []byte(`{"locationId":"loc1","type":"ContactCreate"}`)
    if !v.Verify(body, sign(t, priv, body)) {
        t.Fatal("valid signature rejected")
    }
}

func TestVerifyTamperedBody(t *testing.T) {
    priv, v := testKeyPair(t)
    body := []byte(`{"locationId":"loc1","type":"ContactCreate"}`)
    sig := sign(t, priv, body)
    body[10] ^= 0xff
    if v.Verify(body, sig) {
        t.Fatal("tampered body accepted")
    }
}

func TestVerifyMalformedSignature(t *testing.T) {
    _, v := testKeyPair(t)
    if v.Verify([]byte(`{}`), "not base64 !!!") {
        t.Fatal("malformed signature accepted")
    }
    if v.Verify([]byte(`{}`), "") {
        t.Fatal("empty signature accepted")
    }
}

func TestVerifyWrongKey(t *testing.T) {
    priv, _ := testKeyPair(t)
    _, other := testKeyPair(t)
    body := []byte(`{"locationId":"loc1"}`)
    if other.Verify(body, sign(t, priv, body)) {
        t.Fatal("signature from a different key accepted")
    }
}

func TestNilVerifierRejects(t *testing.T) {
    v := &SignatureVerifier{}
    if v.Verify([]byte(`{}`), base64.StdEncoding.EncodeToString([]byte("sig"))) {
        t.Fatal("keyless verifier accepted a signature")
    }
}

func TestNewSignatureVerifierBadPEM(t *testing.T) {
    if _, err := NewSignatureVerifier([]byte("not a pem")); err == nil {
        t.Fatal("expected error for invalid PEM")
    }
}

func TestNewSignatureVerifierFromEnvOverride(t *testing.T) {
    t.Setenv("PLATFORM_PUBLIC_KEY", "garbage")
    v := NewSignatureVerifierFromEnv()
    // Unusable key degrades to reject-all, never a startup failure.
    if v.Verify([]byte(`{}`), "AAAA") {
        t.Fatal("verifier with unusable key accepted a signature")
    }
}
