// Package token signs and verifies session tokens. A token is a
// compact HS256 JWT carrying the session id, the user id, and the role
// snapshot; the signing key is derived from SECRET_KEY.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

const issuer = "conatoc-net"

// Codec signs session tokens and turns raw tokens back into sessions.
type Codec struct {
	secret []byte
}

// SessionClaims is the custom JWT payload next to the standard claims.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
}

// NewCodec builds a codec from the configured secret key.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: secret key must not be empty")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign serializes a session into a signed token.
func (c *Codec) Sign(sess domain.Session) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: c.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	std := gojwt.Claims{
		Subject:  strconv.FormatInt(sess.UserID, 10),
		Issuer:   issuer,
		IssuedAt: gojwt.NewNumericDate(sess.CreatedAt),
		Expiry:   gojwt.NewNumericDate(sess.ExpiresAt),
	}
	custom := SessionClaims{SessionID: sess.ID, Role: string(sess.Role)}

	raw, err := gojwt.Signed(signer).Claims(std).Claims(custom).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize session token: %w", err)
	}
	return raw, nil
}

// Parse verifies the signature and expiry of a raw token and rebuilds
// the session it encodes. Expired tokens return
// domain.ErrSessionExpired; any other defect is an opaque parse error.
func (c *Codec) Parse(raw string) (domain.Session, error) {
	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse session token: %w", err)
	}

	var std gojwt.Claims
	var custom SessionClaims
	if err := parsed.Claims(c.secret, &std, &custom); err != nil {
		return domain.Session{}, fmt.Errorf("verify session token: %w", err)
	}
	if err := std.Validate(gojwt.Expected{Issuer: issuer, Time: time.Now()}); err != nil {
		if errors.Is(err, gojwt.ErrExpired) {
			return domain.Session{}, domain.ErrSessionExpired
		}
		return domain.Session{}, fmt.Errorf("validate session token: %w", err)
	}

	userID, err := strconv.ParseInt(std.Subject, 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("invalid subject claim: %w", err)
	}
	role, err := domain.ParseRole(custom.Role)
	if err != nil {
		return domain.Session{}, fmt.Errorf("invalid role claim: %w", err)
	}
	if custom.SessionID == "" {
		return domain.Session{}, errors.New("missing session id claim")
	}

	return domain.Session{
		ID:        custom.SessionID,
		UserID:    userID,
		Role:      role,
		ExpiresAt: std.Expiry.Time(),
		CreatedAt: std.IssuedAt.Time(),
	}, nil
}
