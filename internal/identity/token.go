package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLen is the shortest HMAC secret accepted for session tokens.
const minSecretLen = 16

// TokenVerifier validates the provider's session tokens.
//
// Session tokens are HS256 JWTs:
//
//	{"sub":"user_2abc","pla":["pro"],"sid":"sess_9xy","iss":"...","exp":...}
//
// sub is the external user id, pla the plan tags the session is entitled to,
// sid the provider's session id.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier builds a verifier for secret. When issuer is non-empty
// tokens must carry exactly that "iss".
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("identity: session secret must be at least %d characters", minSecretLen)
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Plans     []string `json:"pla,omitempty"`
	SessionID string   `json:"sid,omitempty"`
}

// Issue signs a session token for id valid for ttl. Used by cmd/devtoken
// and tests to stand in for the provider.
func (v *TokenVerifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Plans:     id.Plans,
		SessionID: id.SessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("identity: signing session token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr and returns the identity it asserts.
//
// Rejected: bad signature, any algorithm but HS256, missing or past expiry,
// wrong issuer (when configured), empty subject.
func (v *TokenVerifier) Verify(tokenStr string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.New("identity: session expired")
		}
		return Identity{}, fmt.Errorf("identity: invalid session token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("identity: invalid session claims")
	}
	if c.Subject == "" {
		return Identity{}, errors.New("identity: session token has no subject")
	}

	return Identity{ID: c.Subject, Plans: c.Plans, SessionID: c.SessionID}, nil
}
