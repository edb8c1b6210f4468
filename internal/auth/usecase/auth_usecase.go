package usecase

import (
	"errors"
	"fmt"
	"time"

	authdomain "medreminder-backend/internal/auth/domain"
	"medreminder-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthUsecase validates and issues operator tokens
type AuthUsecase interface {
	// Enabled reports whether a signing secret is configured
	Enabled() bool
	ValidateToken(tokenString string) (*authdomain.Operator, error)
	IssueToken(operatorID, role string) (string, error)
}

type authUsecase struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewAuthUsecase(cfg *config.Config) AuthUsecase {
	return &authUsecase{
		secret: []byte(cfg.Auth.JWTSecret),
		expiry: cfg.Auth.TokenExpiry,
		now:    time.Now,
	}
}

func (u *authUsecase) Enabled() bool {
	return len(u.secret) > 0
}

func (u *authUsecase) IssueToken(operatorID, role string) (string, error) {
	if !u.Enabled() {
		return "", errors.New("JWT secret is not configured")
	}
	claims := jwt.MapClaims{
		"id":   operatorID,
		"role": role,
		"jti":  uuid.New().String(),
		"iat":  u.now().Unix(),
		"exp":  u.now().Add(u.expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.secret)
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.Operator, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return u.secret, nil
	}, jwt.WithTimeFunc(u.now))
	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	role, _ := claims["role"].(string)
	if id == "" {
		return nil, authdomain.ErrInvalidToken
	}
	return &authdomain.Operator{ID: id, Role: role}, nil
}
