package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminTokenTTL = 12 * time.Hour

// Claims carried by an admin session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken issues an HS256 token granting admin access, valid for
// the rest of a working day.
func GenerateAdminToken(secret string) (string, error) {
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(adminTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAdminToken parses and verifies an admin token.
func ValidateAdminToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role != "admin" {
		return nil, fmt.Errorf("invalid role")
	}
	return claims, nil
}
