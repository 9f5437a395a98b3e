package keymanager

import (
	"chainsign/internal/signkeys"
	"chainsign/internal/wallet"
	"errors"
	"time"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var ErrUnknownSession = errors.New("unknown or expired wallet session")

// KeyManager keeps the connected wallet sessions. A session that expires or is
// removed gets disconnected so its in-flight operations are discarded. Expired
// sessions are disconnected by the first lookup that misses or by the periodic
// sweep, whichever comes first.
type KeyManager struct {
	logger       *zap.Logger
	sessionCache *cache.Cache
}

type Option func(*settings)

type settings struct {
	cleanupInterval time.Duration
}

// WithCleanupInterval sets how often expired sessions are swept, ttl/2 by default.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *settings) { s.cleanupInterval = interval }
}

func NewKeyManager(logger *zap.Logger, ttl time.Duration, options ...Option) KeyManager {
	s := settings{cleanupInterval: ttl / 2}
	for _, option := range options {
		option(&s)
	}

	sessionCache := cache.New(ttl, s.cleanupInterval)
	sessionCache.OnEvicted(func(id string, item interface{}) {
		if session, ok := item.(*wallet.KeySession); ok {
			session.Disconnect()
			logger.Debug("wallet session disconnected", zap.String("sessionID", id))
		}
	})

	return KeyManager{
		logger:       logger,
		sessionCache: sessionCache,
	}
}

// Connect registers a session for keys. Without keys a new key pair is generated.
func (k KeyManager) Connect(keys signkeys.UserKeys, options ...wallet.Option) (*wallet.KeySession, error) {
	if !keys.Valid() {
		generated, err := signkeys.GenerateKeys()
		if err != nil {
			return nil, err
		}
		keys = generated
	}

	session, err := wallet.NewKeySession(keys, options...)
	if err != nil {
		return nil, err
	}

	k.sessionCache.SetDefault(session.ID(), session)
	k.logger.Info("wallet session connected", zap.String("sessionID", session.ID()), zap.String("address", keys.Address()))

	return session, nil
}

// Get returns the session and extends its lifetime.
func (k KeyManager) Get(sessionID string) (*wallet.KeySession, error) {
	item, ok := k.sessionCache.Get(sessionID)
	if !ok {
		// the session may have expired without being swept yet
		k.sessionCache.DeleteExpired()
		return nil, ErrUnknownSession
	}

	session := item.(*wallet.KeySession)
	if _, connected := session.CurrentAddress(); !connected {
		k.sessionCache.Delete(sessionID)
		return nil, ErrUnknownSession
	}
	k.sessionCache.SetDefault(sessionID, session)

	return session, nil
}

func (k KeyManager) Disconnect(sessionID string) error {
	if _, ok := k.sessionCache.Get(sessionID); !ok {
		k.sessionCache.DeleteExpired()
		return ErrUnknownSession
	}
	// eviction callback disconnects the session
	k.sessionCache.Delete(sessionID)
	return nil
}

func (k KeyManager) Count() int {
	return k.sessionCache.ItemCount()
}
