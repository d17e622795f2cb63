package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/postqueue/internal/transfer"
)

const issuer = "postqueue"

var ErrWrongPurpose = errors.New("token issued for another purpose")

// GenerateToken signs an HS256 token for email. purpose keeps session tokens
// and OAuth state values from being swapped for one another.
func GenerateToken(secretKey, email, purpose string, tokenDuration time.Duration) (string, error) {
	now := time.Now()
	claims := transfer.CustomClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        NewNonce(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return signedToken, nil
}

func ValidateToken(secretKey, tokenString, purpose string) (*transfer.CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	claims, ok := token.Claims.(*transfer.CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}
