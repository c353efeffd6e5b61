package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// transactionIntent is the intent prefix for transaction data: scope
// TransactionData, version V0, app Sui.
var transactionIntent = []byte{0, 0, 0}

// Signer holds a secp256k1 key and its Sui address.
type Signer struct {
	key     *ecdsa.PrivateKey
	pubkey  []byte
	address string
}

// NewSigner builds a Signer from a raw 32-byte private key.
func NewSigner(raw []byte) (*Signer, error) {
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	pub := ethcrypto.CompressPubkey(&key.PublicKey)
	return &Signer{key: key, pubkey: pub, address: SuiAddress(pub)}, nil
}

// Address returns the 0x-prefixed Sui address.
func (s *Signer) Address() string { return s.address }

// PublicKey returns the 33-byte compressed public key.
func (s *Signer) PublicKey() []byte { return append([]byte(nil), s.pubkey...) }

// SignTransaction signs BCS TransactionData and returns the serialized
// signature: flag || r || s || pubkey, base64 encoded.
func (s *Signer) SignTransaction(txBytes []byte) (string, error) {
	digest := TransactionDigest(txBytes)
	hash := sha256.Sum256(digest[:])
	sig, err := ethcrypto.Sign(hash[:], s.key)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	out := make([]byte, 0, 1+64+len(s.pubkey))
	out = append(out, secp256k1Flag)
	out = append(out, sig[:64]...)
	out = append(out, s.pubkey...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// TransactionDigest is blake2b-256 over the intent message.
func TransactionDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// SuiAddress derives the address of a compressed secp256k1 public key.
func SuiAddress(compressedPubkey []byte) string {
	buf := make([]byte, 0, 1+len(compressedPubkey))
	buf = append(buf, secp256k1Flag)
	buf = append(buf, compressedPubkey...)
	sum := blake2b.Sum256(buf)
	return hexutil.Encode(sum[:])
}

// VerifySignature checks a serialized signature against txBytes.
func VerifySignature(txBytes []byte, serialized string) bool {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil || len(raw) != 1+64+33 || raw[0] != secp256k1Flag {
		return false
	}
	digest := TransactionDigest(txBytes)
	hash := sha256.Sum256(digest[:])
	return ethcrypto.VerifySignature(raw[65:], hash[:], raw[1:65])
}
