package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims identifies a demo participant.
type SessionClaims struct {
	Address  string
	Username string
	Expires  time.Time
}

// GenerateSessionToken creates a signed demo identity token for an address.
func GenerateSessionToken(address, username, jwtSecret string, ttl time.Duration) (string, time.Time, error) {
	if jwtSecret == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	now := time.Now().UTC()
	expires := now.Add(ttl)

	claims := jwt.MapClaims{
		"address": strings.TrimSpace(address),
		"jti":     GenerateULID(),
		"iat":     now.Unix(),
		"exp":     expires.Unix(),
	}
	if username != "" {
		claims["username"] = username
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ParseSessionToken validates a token and extracts the session claims.
func ParseSessionToken(tokenString, jwtSecret string) (*SessionClaims, error) {
	claims, err := ValidateJWT(tokenString, jwtSecret)
	if err != nil {
		return nil, err
	}
	address, _ := claims["address"].(string)
	if address == "" {
		return nil, ErrInvalidToken
	}
	session := &SessionClaims{Address: address}
	if username, ok := claims["username"].(string); ok {
		session.Username = username
	}
	if exp, ok := claims["exp"].(float64); ok {
		session.Expires = time.Unix(int64(exp), 0).UTC()
	}
	return session, nil
}
