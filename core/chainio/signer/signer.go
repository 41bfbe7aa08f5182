package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	eip191Prefix = "\x19Ethereum Signed Message:\n"
)

// ErrInvalidPrivateKey is returned for any key that cannot be parsed or
// generated. The message is fixed so key material never reaches callers or logs.
var ErrInvalidPrivateKey = errors.New("invalid private key")

// Signer holds a secp256k1 key and signs messages with it.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// FromPrivateKeyHex parses a 32 byte hex key, with or without 0x prefix. The
// scalar must be non zero and below the curve order.
func FromPrivateKeyHex(privateKeyHex string) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X")
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}

	return New(privateKey), nil
}

// Generate creates a signer for a fresh random key.
func Generate() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}

	return New(privateKey), nil
}

// Address is the EOA controlled by this key.
func (s *Signer) Address() common.Address {
	return s.address
}

// PrivateKeyHex returns the raw key as lowercase hex without 0x prefix.
func (s *Signer) PrivateKeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSA(s.key))
}

// SignMessage produces an EIP-191 personal signature over data.
func (s *Signer) SignMessage(data []byte) ([]byte, error) {
	return SignMessage(s.key, data)
}

// DeriveAddress returns the checksummed address of a hex encoded key.
func DeriveAddress(privateKeyHex string) (string, error) {
	s, err := FromPrivateKeyHex(privateKeyHex)
	if err != nil {
		return "", err
	}
	return s.Address().Hex(), nil
}

func hashPersonalMessage(data []byte) common.Hash {
	prefix := []byte(eip191Prefix + fmt.Sprint(len(data)))
	prefixedData := append(prefix, data...)
	return crypto.Keccak256Hash(prefixedData)
}

// Generate EIP191 signature
func SignMessage(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	sig, err := crypto.Sign(hashPersonalMessage(data).Bytes(), key)
	if err != nil {
		return nil, err
	}
	// https://stackoverflow.com/questions/69762108/implementing-ethereum-personal-sign-eip-191-from-go-ethereum-gives-different-s
	sig[64] += 27

	return sig, nil
}

// RecoverAddress returns the address that produced an EIP-191 signature over data.
func RecoverAddress(data []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(hashPersonalMessage(data).Bytes(), sig)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
