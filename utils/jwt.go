package utils

import (
	"errors"
	"time"

	"dhub/config"

	"github.com/golang-jwt/jwt"
)

func sessionSecret() []byte {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		secret = "dhub-dev-secret"
	}
	return []byte(secret)
}

// GenerateSessionToken creates a signed JWT carrying a flow session ID.
// The token expires after the specified duration.
func GenerateSessionToken(sessionID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(sessionSecret())
}

// ExtractSessionID parses and validates a session token and returns the
// flow session ID it carries.
func ExtractSessionID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return sessionSecret(), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid session token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("session token missing subject")
	}
	return sub, nil
}
