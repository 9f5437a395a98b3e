package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/square/go-jose.v2/jwt"
)

const leeway = time.Minute

type contextKey string

const subjectKey contextKey = "subject"

type JwtTokenParams struct {
	Issuer   string
	Audience string
	// HMAC key, without it the signature is not verified
	Secret string
}

type TokenValidator struct {
	JwtTokenParams
	logger *zap.Logger
}

func NewTokenValidator(logger *zap.Logger, params JwtTokenParams) TokenValidator {
	if params.Secret == "" {
		logger.Warn("no jwt secret configured, token signatures are not verified")
	}
	return TokenValidator{logger: logger, JwtTokenParams: params}
}

// Validate rejects requests without a valid bearer token and puts the token
// subject into the request context.
func (t TokenValidator) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("Authorization")
		if !strings.HasPrefix(token, "Bearer ") {
			t.authError(w, errors.New("missing bearer token"))
			return
		}

		claims, err := t.parseToken(strings.TrimPrefix(token, "Bearer "))
		if err != nil {
			t.authError(w, errors.New("failed to parse the auth token: "+err.Error()))
			return
		}

		if err := t.validateClaims(claims); err != nil {
			t.authError(w, errors.New("auth token validation: "+err.Error()))
			return
		}

		newCtx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

// SubjectFromContext returns the subject of the validated token.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}

func (t TokenValidator) authError(w http.ResponseWriter, err error) {
	t.logger.Warn(err.Error())
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(err.Error()))
}

func (t TokenValidator) validateClaims(claims jwt.Claims) error {
	expected := jwt.Expected{
		Issuer: t.Issuer,
		Time:   time.Now(),
	}
	if t.Audience != "" {
		expected.Audience = jwt.Audience{t.Audience}
	}
	return claims.ValidateWithLeeway(expected, leeway)
}

func (t TokenValidator) parseToken(tokenString string) (jwt.Claims, error) {
	var claims jwt.Claims

	token, err := jwt.ParseSigned(tokenString)
	if err != nil {
		return claims, err
	}

	if t.Secret == "" {
		err = token.UnsafeClaimsWithoutVerification(&claims)
	} else {
		err = token.Claims([]byte(t.Secret), &claims)
	}
	return claims, err
}
