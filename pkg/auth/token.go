// Package auth 提供会话令牌的签发与校验
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims 会话令牌 claims
type Claims struct {
	AppID  string `json:"app_id"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenSigner 用 appKey 对会话令牌做 HS256 签名。
// 令牌随 session/open 一起发送，由服务端校验。
type TokenSigner struct {
	appID  string
	secret []byte
}

// NewTokenSigner 创建签名器
func NewTokenSigner(appID, appKey string) *TokenSigner {
	return &TokenSigner{
		appID:  appID,
		secret: []byte(appKey),
	}
}

// Sign 为 userID 签发令牌
func (s *TokenSigner) Sign(userID string, expiry time.Duration) (string, error) {
	claims := &Claims{
		AppID:  s.appID,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate 校验令牌（测试和本地模拟服务端使用）
func (s *TokenSigner) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
