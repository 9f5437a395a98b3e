package wallet

import (
	"chainsign/internal/model"
	"chainsign/internal/signkeys"
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
)

// LoginMessage is signed by the wallet holder to prove key ownership when connecting.
const LoginMessage = "Login to ChainSign"

// Session is a connected wallet. It lives as long as the browser session
// and is never persisted.
type Session interface {
	// CurrentAddress returns false once the wallet is disconnected.
	CurrentAddress() (string, bool)
	PublicKey() string
	// RequestSignature returns model.ErrSignatureDeclined when the holder refuses.
	RequestSignature(ctx context.Context, payload []byte) ([]byte, error)
	// Done is closed on disconnect.
	Done() <-chan struct{}
}

// ConfirmFunc asks the wallet holder whether payload may be signed.
type ConfirmFunc func(ctx context.Context, payload []byte) bool

type Option func(*KeySession)

func WithConfirm(confirm ConfirmFunc) Option {
	return func(s *KeySession) { s.confirm = confirm }
}

// KeySession is a Session backed by secp256k1 keys held in memory.
type KeySession struct {
	id      string
	address string
	keys    signkeys.UserKeys
	signer  *signing.Signer
	confirm ConfirmFunc

	done      chan struct{}
	closeOnce sync.Once
}

func NewKeySession(keys signkeys.UserKeys, options ...Option) (*KeySession, error) {
	if !keys.Valid() {
		return nil, errors.New("wallet keys are not initialized")
	}

	s := &KeySession{
		id:      uuid.NewString(),
		address: keys.Address(),
		keys:    keys,
		signer:  keys.GetSigner(),
		done:    make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}

	return s, nil
}

func (s *KeySession) ID() string {
	return s.id
}

func (s *KeySession) CurrentAddress() (string, bool) {
	if s.closed() {
		return "", false
	}
	return s.address, true
}

func (s *KeySession) PublicKey() string {
	return s.keys.PublicKey.AsHex()
}

func (s *KeySession) RequestSignature(ctx context.Context, payload []byte) ([]byte, error) {
	if s.closed() {
		return nil, model.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.confirm != nil && !s.confirm(ctx, payload) {
		return nil, model.ErrSignatureDeclined
	}
	// the prompt may have outlived the session
	if s.closed() {
		return nil, model.ErrSessionClosed
	}

	return s.signer.Sign(payload), nil
}

func (s *KeySession) Done() <-chan struct{} {
	return s.done
}

// Disconnect invalidates the session, in-flight operations must discard their results.
func (s *KeySession) Disconnect() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *KeySession) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Connected reports whether the session is usable for a new operation.
func Connected(s Session) (string, bool) {
	if s == nil {
		return "", false
	}
	select {
	case <-s.Done():
		return "", false
	default:
	}
	return s.CurrentAddress()
}

// VerifyLogin checks that signature is the login message signed by publicKey
// and returns the wallet address of that key.
func VerifyLogin(publicKey string, signature []byte) (string, error) {
	address, err := signkeys.AddressFromPublicKey(publicKey)
	if err != nil {
		return "", err
	}
	if !signkeys.Verify(publicKey, []byte(LoginMessage), signature) {
		return "", errors.New("login signature does not match the public key")
	}
	return address, nil
}
