package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamchat/domain"
	apperrors "teamchat/errors"
)

// CustomClaims defines the data the identity provider puts inside a token.
// Name and Email travel in the token so message delivery never needs a
// user-directory lookup.
type CustomClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the verified result of a token check.
type Identity struct {
	UserID    string
	Name      string
	Email     string
	ExpiresAt time.Time
}

func (i Identity) Sender() domain.Sender {
	return domain.Sender{ID: i.UserID, Name: i.Name, Email: i.Email}
}

// TokenAuthenticator verifies bearer credentials issued by the external
// identity provider. Only verification lives here; issuing tokens is the
// provider's job (GenerateToken exists for tooling and tests).
type TokenAuthenticator struct {
	key    []byte
	issuer string
}

func NewTokenAuthenticator(secret, issuer string) *TokenAuthenticator {
	return &TokenAuthenticator{key: []byte(secret), issuer: issuer}
}

// GenerateToken creates a signed HS256 JWT for a specific user.
func (a *TokenAuthenticator) GenerateToken(userID, name, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Name:   name,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.key)
}

// Verify parses and validates the signature and expiration of a token
// string. Every failure collapses to ErrUnauthorized at the boundary;
// callers never learn why a credential was rejected.
func (a *TokenAuthenticator) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, apperrors.ErrUnauthorized
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return Identity{}, apperrors.ErrUnauthorized
	}

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return Identity{
		UserID:    claims.UserID,
		Name:      claims.Name,
		Email:     claims.Email,
		ExpiresAt: expires,
	}, nil
}
