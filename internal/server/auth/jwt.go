// Package auth issues and verifies the HS256 access tokens of doctors.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the doctor the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	DoctorID string `json:"doctorId"`
}

func GenerateToken(doctorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		DoctorID: doctorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetDoctorIDFromToken verifies tokenString. An expired token gives
// common.ErrTokenExpired, anything else that fails common.ErrInvalidToken.
func GetDoctorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", common.ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.DoctorID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.DoctorID, nil
}
