// internal/auth/auth.go
package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DevTokenTTL は開発用トークンの有効期限。
const DevTokenTTL = 24 * time.Hour

type subjectKey struct{}

// WithSubject は認証済みの subject を context に埋め込む
func WithSubject(ctx context.Context, sub string) context.Context {
	if sub == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext は context から subject を取り出す
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey{}).(string)
	return s, ok && s != ""
}

// アプリ全体で使う Authenticator のラッパ
type Authenticator struct {
	jwt    *JWTAuthenticator
	logger *zap.Logger
}

func NewAuthenticator(logger *zap.Logger, secret string) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{
		jwt:    NewJWTAuthenticator(secret),
		logger: logger,
	}
}

// Authenticate はトークンを検証し、subject を載せた ctx を返す。
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (context.Context, error) {
	sub, err := a.jwt.Validate(raw)
	if err != nil {
		// トークン本体はログに出さない
		a.logger.Info("invalid token", zap.Error(err))
		return ctx, ErrInvalidToken
	}
	return WithSubject(ctx, sub), nil
}

// GenerateDevToken は開発用のトークン発行。
func (a *Authenticator) GenerateDevToken(sub string) (string, error) {
	return a.jwt.GenerateToken(sub, DevTokenTTL)
}
