package hashing

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

func CalculateSHA512(data string) string {
	return Calculate([]byte(data))
}

// Calculate returns hex encoded SHA-512 of the data, the hash sawtooth uses for addressing and payloads.
func Calculate(data []byte) string {
	h := sha512.Sum512(data)
	return hex.EncodeToString(h[:])
}

func CalculateSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Fingerprint is the keccak256 commitment to the document content stored on chain.
func Fingerprint(content []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	// hash.Hash never returns an error on Write
	_, _ = hash.Write(content)
	return hash.Sum(nil)
}

func FingerprintHex(content []byte) string {
	return hex.EncodeToString(Fingerprint(content))
}

func SHA3(data []byte) []byte {
	h := sha3.Sum256(data)
	return h[:]
}
