package platform

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"errors"
)

// DecryptSSO decrypts the SSO session key the platform embeds in custom
// pages. The ciphertext is OpenSSL-style: base64 of "Salted__" + 8-byte
// salt + AES-256-CBC data, with key/iv derived from the shared SSO key
// via the MD5 EVP_BytesToKey scheme.
func (c *Client) DecryptSSO(key string) (map[string]any, error) {
	if c.Config.SSOKey == "" {
		return nil, errors.New("sso: shared key not configured")
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, errors.New("sso: payload is not base64")
	}
	if len(raw) < 16 || string(raw[:8]) != "Salted__" {
		return nil, errors.New("sso: missing salt header")
	}
	salt := raw[8:16]
	data := raw[16:]
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("sso: ciphertext not block aligned")
	}

	aesKey, iv := evpKDF([]byte(c.Config.SSOKey), salt, 32, aes.BlockSize)
	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	plain, err = pkcs7Unpad(plain)
	if err != nil {
		return nil, err
	}

	var session map[string]any
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, errors.New("sso: decrypted payload is not JSON")
	}
	return session, nil
}

// evpKDF is OpenSSL EVP_BytesToKey with MD5 and one iteration.
func evpKDF(secret, salt []byte, keyLen, ivLen int) (key, iv []byte) {
	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(secret)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, errors.New("sso: empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("sso: bad padding")
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, errors.New("sso: bad padding")
	}
	return b[:len(b)-n], nil
}
