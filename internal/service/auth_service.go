package service

import (
	"errors"
	"fmt"

	"parkflow/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("token is invalid or expired")
var ErrMissingContractor = errors.New("token carries no contractor")

// AuthService validates attendant tokens issued by the backend. It never issues tokens.
type AuthService struct {
	jwtSecret string
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: jwtSecret}
}

// AttendantClaims are the claims the backend puts in an attendant token.
type AttendantClaims struct {
	ContractorID string `json:"contractor_id"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken checks the signature and expiry and returns the acting attendant.
func (s *AuthService) ValidateToken(tokenString string) (domain.Actor, error) {
	claims := &AttendantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return domain.Actor{}, fmt.Errorf("%w: token is malformed", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, fmt.Errorf("%w: token has expired", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return domain.Actor{}, fmt.Errorf("%w: token is not valid yet", ErrTokenInvalid)
		}
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return domain.Actor{}, ErrTokenInvalid
	}
	if claims.ContractorID == "" {
		return domain.Actor{}, ErrMissingContractor
	}

	return domain.Actor{
		AttendantID:  claims.Subject,
		ContractorID: claims.ContractorID,
		Role:         claims.Role,
		Token:        tokenString,
	}, nil
}
