package signkeys

import (
	"chainsign/internal/hashing"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
)

type UserKeys struct {
	PrivateKey signing.PrivateKey
	PublicKey  signing.PublicKey
}

func (u UserKeys) Valid() bool {
	return u.PrivateKey != nil && u.PublicKey != nil
}

func (u UserKeys) GetSigner() *signing.Signer {
	cryptoFactory := signing.NewCryptoFactory(signing.NewSecp256k1Context())
	return cryptoFactory.NewSigner(u.PrivateKey)
}

// Address is the wallet address derived from the compressed public key.
func (u UserKeys) Address() string {
	return addressOf(u.PublicKey.AsBytes())
}

func AddressFromPublicKey(publicKeyHex string) (string, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return "", errors.New("public key is not hex encoded: " + err.Error())
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return "", errors.New("invalid public key: " + err.Error())
	}
	return addressOf(pub.SerializeCompressed()), nil
}

func addressOf(publicKey []byte) string {
	return "0x" + hex.EncodeToString(hashing.SHA3(publicKey))
}

// source: https://github.com/ethereum/go-ethereum/blob/86d547707965685cef732aa28c15e6811ea98408/crypto/secp256k1/secp256_test.go#L19
func GenerateKeys() (UserKeys, error) {
	key, err := ecdsa.GenerateKey(btcec.S256(), rand.Reader)
	if err != nil {
		return UserKeys{}, errors.New("failed to generate the keys: " + err.Error())
	}

	privkey := make([]byte, 32)
	blob := key.D.Bytes()
	copy(privkey[32-len(blob):], blob)

	return fromPrivateBytes(privkey), nil
}

// NewUserKeys parses a hex encoded secp256k1 private key.
func NewUserKeys(privateKeyHex string) (UserKeys, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return UserKeys{}, errors.New("private key is not hex encoded: " + err.Error())
	}
	if len(raw) != 32 {
		return UserKeys{}, errors.New("private key must be 32 bytes long")
	}

	return fromPrivateBytes(raw), nil
}

// Verify checks a signature produced by a sawtooth signer over message.
func Verify(publicKeyHex string, message, signature []byte) bool {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(signature) != 64 {
		return false
	}
	if _, err := secp256k1.ParsePubKey(raw); err != nil {
		return false
	}
	return signing.NewSecp256k1Context().Verify(signature, message, signing.NewSecp256k1PublicKey(raw))
}

func fromPrivateBytes(privkey []byte) UserKeys {
	priv := secp256k1.PrivKeyFromBytes(privkey)

	return UserKeys{
		PrivateKey: signing.NewSecp256k1PrivateKey(privkey),
		PublicKey:  signing.NewSecp256k1PublicKey(priv.PubKey().SerializeCompressed()),
	}
}
