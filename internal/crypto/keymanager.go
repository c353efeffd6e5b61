// Package crypto resolves the wallet's secp256k1 private key and signs Sui
// transactions with it.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	keyFileVersion   = 1

	// secp256k1Flag prefixes secp256k1 keys in Sui keystore entries.
	secp256k1Flag = 0x01
)

// keyFile is the on-disk format of an encrypted key. Binary fields are
// base64 standard encoded.
type keyFile struct {
	Version    int    `json:"version"`
	Scheme     string `json:"scheme"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeySource says where to find the wallet key.
type KeySource struct {
	// PrivateKey is a 32-byte key in hex (optionally 0x prefixed) or a Sui
	// keystore entry: base64 of the scheme flag followed by the key.
	PrivateKey string

	// EncryptedKeyPath points at a file written by EncryptKey.
	EncryptedKeyPath string
	KeyPassword      string
}

// Configured reports whether any key source is set.
func (s KeySource) Configured() bool {
	return s.PrivateKey != "" || s.EncryptedKeyPath != ""
}

// ParsePrivateKey decodes a key in either accepted text form.
func ParsePrivateKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	hexPart := strings.TrimPrefix(s, "0x")
	if len(hexPart) == 64 {
		if b, err := hex.DecodeString(hexPart); err == nil {
			return b, nil
		}
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("crypto: private key is neither 32-byte hex nor a keystore entry")
	}
	if len(raw) != 33 {
		return nil, fmt.Errorf("crypto: keystore entry has %d bytes, want 33", len(raw))
	}
	if raw[0] != secp256k1Flag {
		return nil, fmt.Errorf("crypto: keystore scheme flag %#x is not secp256k1", raw[0])
	}
	return raw[1:], nil
}

// EncryptKey seals a private key under password with PBKDF2-SHA256 and
// AES-256-GCM and returns the JSON key file.
func EncryptKey(privateKey, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	return json.MarshalIndent(keyFile{
		Version:    keyFileVersion,
		Scheme:     "secp256k1",
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, key, nil)),
	}, "", "  ")
}

// DecryptKey opens a key file produced by EncryptKey and returns the raw
// 32-byte key.
func DecryptKey(data []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("crypto: parsing key file: %w", err)
	}
	if kf.Version != keyFileVersion {
		return nil, fmt.Errorf("crypto: unsupported key file version %d", kf.Version)
	}
	if kf.Scheme != "" && kf.Scheme != "secp256k1" {
		return nil, fmt.Errorf("crypto: unsupported key scheme %q", kf.Scheme)
	}

	salt, err := base64.StdEncoding.DecodeString(kf.Salt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(kf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(kf.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("crypto: nonce has %d bytes", len(nonce))
	}
	key, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return key, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}

// LoadKey resolves the raw key. An inline key wins over the key file.
func LoadKey(src KeySource) ([]byte, error) {
	if src.PrivateKey != "" {
		return ParsePrivateKey(src.PrivateKey)
	}
	if src.EncryptedKeyPath != "" {
		data, err := os.ReadFile(src.EncryptedKeyPath)
		if err != nil {
			return nil, fmt.Errorf("crypto: reading key file: %w", err)
		}
		return DecryptKey(data, src.KeyPassword)
	}
	return nil, errors.New("crypto: no private key source configured")
}
