// Package authtoken issues the single-purpose signed tokens used outside the
// login session: password resets and account invitations.
//
// These tokens never carry a "role" claim and keep the subject as a string,
// so the session middleware refuses them as access tokens.
package authtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeReset  = "password_reset"
	PurposeInvite = "invite"
)

var ErrInvalid = errors.New("invalid token")

type Claims struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email,omitempty"`
	RoleID  uint   `json:"roleId,omitempty"`

	// Fingerprint binds a reset token to the password hash it was issued
	// against. Once the password changes the token stops matching.
	Fingerprint string `json:"fp,omitempty"`

	jwt.RegisteredClaims
}

// ResetClaims builds the claims of a password reset token for a user.
func ResetClaims(userID uint, passwordHash string) Claims {
	return Claims{
		Purpose:          PurposeReset,
		Fingerprint:      Fingerprint(passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{Subject: strconv.FormatUint(uint64(userID), 10)},
	}
}

func InviteClaims(email string, roleID uint) Claims {
	return Claims{Purpose: PurposeInvite, Email: email, RoleID: roleID}
}

func Issue(secret string, c Claims, now time.Time, ttl time.Duration) (string, error) {
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// Parse verifies signature, expiry against now and the expected purpose.
func Parse(secret, raw, purpose string, now time.Time) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Purpose != purpose {
		return nil, fmt.Errorf("%w: purpose %q", ErrInvalid, c.Purpose)
	}
	return &c, nil
}

// UserID reads the subject of a reset token.
func (c *Claims) UserID() (uint, bool) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
