package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const accountNameKey = "accountName"

// Claims is the JWT payload issued after a successful authentication.
type Claims struct {
	AccountName string `json:"accountName"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for the named account.
func SignToken(secret []byte, accountName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountName: accountName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountName,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the signature and expiry of a token.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(accountNameKey, claims.AccountName)
		c.Next()
	}
}

// GetAccountName returns the account authenticated by AuthMiddleware.
func GetAccountName(c *gin.Context) (string, bool) {
	name, exists := c.Get(accountNameKey)
	if !exists {
		return "", false
	}
	s, ok := name.(string)
	return s, ok
}
