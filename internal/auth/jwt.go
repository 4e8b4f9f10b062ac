package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// 認証エラーをまとめる（middleware から判定しやすくするため）
	ErrInvalidToken = errors.New("invalid token")
)

type JWTAuthenticator struct {
	secret []byte
	now    func() time.Time
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateToken は HS256 のトークンを発行する（cmd/jwt_gen からも使う）。
func GenerateToken(secret, sub string, ttl time.Duration) (string, error) {
	return NewJWTAuthenticator(secret).GenerateToken(sub, ttl)
}

func (a *JWTAuthenticator) GenerateToken(sub string, ttl time.Duration) (string, error) {
	now := a.now()

	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate はトークンを検証して subject を返す。HS256 以外は拒否。
func (a *JWTAuthenticator) Validate(rawToken string) (string, error) {
	var claims jwt.RegisteredClaims

	parsed, err := jwt.ParseWithClaims(rawToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
