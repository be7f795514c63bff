package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// BoardClaims 보드 접근 토큰 클레임
type BoardClaims struct {
	UserID  string `json:"user_id"`
	BoardID string `json:"board_id"`
	jwt.RegisteredClaims
}

// JWTManager JWT 토큰 관리자
type JWTManager struct {
	secretKey []byte
	expiry    time.Duration
}

// NewJWTManager JWTManager 생성
func NewJWTManager(secretKey string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		expiry:    expiry,
	}
}

// GenerateBoardToken issues a token granting one user access to one board's
// channels.
func (m *JWTManager) GenerateBoardToken(userID, boardID string) (string, error) {
	now := time.Now()
	claims := &BoardClaims{
		UserID:  userID,
		BoardID: boardID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "canvas-gateway",
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateBoardToken 보드 토큰 검증
func (m *JWTManager) ValidateBoardToken(tokenString string) (*BoardClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &BoardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*BoardClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
