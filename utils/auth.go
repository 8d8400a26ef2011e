// utils/auth.go
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is lowered in tests.
var BcryptCost = 12

var (
	jwtSecret   []byte
	jwtExpiry   = 24 * time.Hour
	ErrNoSecret = errors.New("JWT_SECRET not set")
)

// ConfigureJWT sets the signing secret and token lifetime.
func ConfigureJWT(secret string, expiryHours int) {
	jwtSecret = []byte(secret)
	if expiryHours > 0 {
		jwtExpiry = time.Duration(expiryHours) * time.Hour
	}
}

// GenerateJWTSecret returns a random base64 key for local development.
func GenerateJWTSecret() string {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic("failed to generate JWT secret")
	}
	return base64.StdEncoding.EncodeToString(key)
}

// Hash password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

// Check password
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Claims identify the caller and the tenant keys that scope what they see.
type Claims struct {
	Role       string `json:"role"`
	SalonID    string `json:"salonId,omitempty"`
	DistrictID string `json:"districtId,omitempty"`
	ChainID    string `json:"chainId,omitempty"`
	SupplierID string `json:"supplierId,omitempty"`
	jwt.RegisteredClaims
}

// Generate JWT token
func GenerateToken(userID string, claims Claims) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims.Subject = userID
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(jwtExpiry))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Principal is the caller as currently stored. It overrides the token
// claims so role changes and deactivation apply to live tokens.
type Principal struct {
	Role       string
	SalonID    string
	DistrictID string
	ChainID    string
	SupplierID string
	Active     bool
}

// PrincipalLoader returns the stored state of userID, or ErrUnknownPrincipal.
type PrincipalLoader func(c *gin.Context, userID string) (*Principal, error)

var ErrUnknownPrincipal = errors.New("user not found")

// Auth middleware
func AuthMiddleware(load PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			if cookie, err := c.Cookie("token"); err == nil {
				tokenString = cookie
			}
		}
		if tokenString == "" {
			RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		if len(tokenString) > 7 && strings.ToUpper(tokenString[0:6]) == "BEARER" {
			tokenString = tokenString[7:]
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			RespondWithError(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		p, err := load(c, claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUnknownPrincipal) {
				RespondWithError(c, http.StatusUnauthorized, "User not found")
			} else {
				RespondWithError(c, http.StatusInternalServerError, "Failed to authenticate")
			}
			return
		}
		if !p.Active {
			RespondWithError(c, http.StatusUnauthorized, "Account is deactivated")
			return
		}

		c.Set("userId", claims.Subject)
		c.Set("role", p.Role)
		c.Set("salonId", p.SalonID)
		c.Set("districtId", p.DistrictID)
		c.Set("chainId", p.ChainID)
		c.Set("supplierId", p.SupplierID)

		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString("role")] {
			RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
