package app

import (
	"chainsign/internal/signkeys"
	"chainsign/internal/wallet"
	"context"
	"errors"

	"go.uber.org/zap"
)

type SessionInfo struct {
	ID        string
	Address   string
	PublicKey string
}

// ConnectSession opens a wallet session for the given private key, or for a
// freshly generated one when the key is empty. The session has to sign the
// login message before it is handed out.
func (a *App) ConnectSession(ctx context.Context, privateKeyHex string) (SessionInfo, error) {
	var keys signkeys.UserKeys
	if privateKeyHex != "" {
		parsed, err := signkeys.NewUserKeys(privateKeyHex)
		if err != nil {
			return SessionInfo{}, err
		}
		keys = parsed
	}

	session, err := a.keys.Connect(keys)
	if err != nil {
		return SessionInfo{}, errors.New("failed to open the wallet session: " + err.Error())
	}

	signature, err := session.RequestSignature(ctx, []byte(wallet.LoginMessage))
	if err == nil {
		_, err = wallet.VerifyLogin(session.PublicKey(), signature)
	}
	if err != nil {
		_ = a.keys.Disconnect(session.ID())
		a.logger.Warn("login verification failed", zap.String("sessionID", session.ID()), zap.Error(err))
		return SessionInfo{}, errors.New("login verification failed: " + err.Error())
	}

	address, _ := session.CurrentAddress()
	return SessionInfo{
		ID:        session.ID(),
		Address:   address,
		PublicKey: session.PublicKey(),
	}, nil
}

func (a *App) DisconnectSession(sessionID string) error {
	return a.keys.Disconnect(sessionID)
}
