// Package token issues and verifies the signed access and refresh
// tokens used by the authentication flow.  Access tokens are
// short-lived and stateless; refresh tokens are longer-lived and are
// additionally persisted verbatim on the user record by the service
// layer, which is what makes rotation and revocation possible.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Verify* for any failure: bad
// signature, malformed token, wrong signing method, or expiry.
// Callers never see the underlying jwt error.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by both token kinds.  UserID is the
// hex form of the user's document id.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens.  Access and refresh tokens use
// separate secrets so a leaked access secret cannot mint refresh
// tokens.  Manager is stateless and safe for concurrent use.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewManager builds a Manager from the two secrets and TTLs.
func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived HS256 access token for the given
// identity.  No side effects.
func (m *Manager) IssueAccess(userID, email, role string) (string, error) {
	return sign(m.accessSecret, userID, email, role, m.accessTTL)
}

// IssueRefresh signs a long-lived HS256 refresh token for the given
// identity.  No side effects; persistence is the caller's concern.
func (m *Manager) IssueRefresh(userID, email, role string) (string, error) {
	return sign(m.refreshSecret, userID, email, role, m.refreshTTL)
}

// VerifyAccess checks signature and expiry against the access secret
// and returns the decoded claims, or ErrInvalidToken.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	return verify(m.accessSecret, raw)
}

// VerifyRefresh checks signature and expiry against the refresh secret
// and returns the decoded claims, or ErrInvalidToken.
func (m *Manager) VerifyRefresh(raw string) (*Claims, error) {
	return verify(m.refreshSecret, raw)
}

func sign(secret []byte, userID, email, role string, ttl time.Duration) (string, error) {
	// A random jti keeps two tokens minted within the same second from
	// being byte-identical; stored-token comparison relies on that.
	jti := make([]byte, 8)
	if _, err := rand.Read(jti); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        hex.EncodeToString(jti),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func verify(secret []byte, raw string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
