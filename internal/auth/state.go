package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	stateIssuer   = "devdash"
	stateLifetime = 10 * time.Minute
)

// StateSigner issues and verifies the OAuth "state" parameter.
//
// WHY A SIGNED STATE?
// The state round-trips through GitHub and comes back on the callback. If the
// server signed it, a callback carrying a forged or stale state can be
// rejected before any call to GitHub is made (login CSRF).
//
// The state is a short-lived HS256 JWT, so no server-side storage is needed:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"iss":"devdash","jti":"<nonce>","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
type StateSigner struct {
	secret   []byte
	lifetime time.Duration
}

// NewStateSigner creates a StateSigner with the given secret.
// Example: OAUTH_STATE_SECRET=$(openssl rand -hex 32)
func NewStateSigner(secret string) (*StateSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: state secret must be at least 16 characters")
	}
	return &StateSigner{secret: []byte(secret), lifetime: stateLifetime}, nil
}

// Issue returns a fresh signed state. Each call carries a new random nonce,
// so two states are never equal.
func (s *StateSigner) Issue() (string, error) {
	return s.issueWithDuration(s.lifetime)
}

func (s *StateSigner) issueWithDuration(d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing state: %w", err)
	}
	return signed, nil
}

// Verify checks that state was issued by this signer and has not expired.
//
// Passing jwt.WithValidMethods rejects "alg":"none" and any non-HMAC token
// (algorithm confusion).
func (s *StateSigner) Verify(state string) error {
	if state == "" {
		return errors.New("auth: missing state")
	}

	token, err := jwt.ParseWithClaims(
		state,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return errors.New("auth: state expired")
		}
		return fmt.Errorf("auth: invalid state: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || c.ID == "" {
		return errors.New("auth: invalid state claims")
	}
	return nil
}
