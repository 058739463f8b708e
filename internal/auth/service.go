// Package auth はベアラートークン（JWT）の検証と発行を提供する。
//
// ユーザー登録とログインは外部のIDサービスが担う。このパッケージは共有シークレットで
// 署名されたトークンからリクエストの主体（ユーザーIDとロール）を復元する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/agencytime/internal/model"
)

// ErrInvalidToken はトークンの署名・形式・有効期限・クレームのいずれかが不正な場合に返される。
var ErrInvalidToken = errors.New("invalid token")

// Claims はトークンに含まれるクレーム。
type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService はHS256で署名されたトークンを検証・発行する。
type TokenService struct {
	secret []byte
	parser *jwt.Parser

	// Now は現在時刻を返す。テストで差し替える。
	Now func() time.Time
}

// NewTokenService はTokenServiceを生成する。secretは空であってはならない。
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}
	s := &TokenService{
		secret: []byte(secret),
		Now:    time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.Now() }),
	)
	return s, nil
}

// Resolve はトークンを検証し、主体を返す。
// 検証に失敗した場合はErrInvalidTokenをラップしたエラーを返す。
func (s *TokenService) Resolve(ctx context.Context, token string) (model.Principal, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID <= 0 {
		return model.Principal{}, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return model.Principal{
		UserID: claims.ID,
		Role:   model.ParseRole(claims.Role),
	}, nil
}

// Issue は主体のトークンを発行する。ttlが0以下の場合は有効期限を付けない。
// 運用では外部のIDサービスが発行するため、開発・検証用途で使う。
func (s *TokenService) Issue(userID int64, username string, role model.Role, ttl time.Duration) (string, error) {
	now := s.Now()
	claims := Claims{
		ID:       userID,
		Username: username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(userID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
