// Package auth issues and verifies the signed access tokens that guard the
// API surface.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	issuer = "smartcal"
	keyID  = "v1"

	// AccessTokenAudienceName is the audience name of the access token.
	AccessTokenAudienceName = "user.access-token"

	// AccessTokenDuration is the lifetime of the access token.
	AccessTokenDuration = 7 * 24 * time.Hour
)

// ClaimsMessage is the JWT claims payload.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken generates an access token for the user.
func GenerateAccessToken(username string, userID int32, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   issuer,
		Audience: jwt.ClaimStrings{AccessTokenAudienceName},
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  strconv.Itoa(int(userID)),
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Name:             username,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = keyID

	return token.SignedString(secret)
}

// Authenticate verifies the token signature and audience, returning the
// user id carried in the subject.
func Authenticate(tokenString string, secret []byte) (int32, error) {
	if tokenString == "" {
		return 0, errors.New("access token not found")
	}

	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != keyID {
			return nil, errors.Errorf("unexpected key id: %v", t.Header["kid"])
		}
		return secret, nil
	}, jwt.WithAudience(AccessTokenAudienceName), jwt.WithIssuer(issuer))
	if err != nil {
		return 0, errors.Wrap(err, "invalid or expired access token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, errors.Wrap(err, "malformed token subject")
	}
	return int32(userID), nil
}
