package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/edukita/examly-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextKeyClaims is the Gin context key for identity claims.
	ContextKeyClaims = "claims"

	// TokenTypeStudent and TokenTypeTeacher are the accepted token_type
	// claim values. Tokens are issued by the platform's identity service;
	// this engine only verifies them.
	TokenTypeStudent = "student"
	TokenTypeTeacher = "teacher"
)

// Claims is the verified identity attached to a request.
type Claims struct {
	UserID    int    `json:"user_id"`
	Name      string `json:"name"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity verifies platform-issued JWTs against the shared signing secret.
type Identity struct {
	secret []byte
}

// NewIdentity creates an Identity verifier.
func NewIdentity(secret string) *Identity {
	return &Identity{secret: []byte(secret)}
}

// RequireStudent validates a student token from the Authorization header.
func (i *Identity) RequireStudent() gin.HandlerFunc {
	return i.require(TokenTypeStudent, response.ErrStudentAccessOnly)
}

// RequireTeacher validates a teacher token from the Authorization header.
func (i *Identity) RequireTeacher() gin.HandlerFunc {
	return i.require(TokenTypeTeacher, response.ErrTeacherAccessOnly)
}

func (i *Identity) require(tokenType string, mismatch response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := i.extractAndValidateClaims(c)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		if claims.TokenType != tokenType {
			response.AbortFail(c, http.StatusForbidden, mismatch)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the identity claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

func (i *Identity) extractAndValidateClaims(c *gin.Context) (*Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("bearer authorization header required")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
