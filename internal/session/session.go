package session

// Package session provides the identity/session provider the engine
// consults before any remote call. It wraps the player's access token;
// acquiring the token in the first place is the login flow's job, not
// ours.

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents access token claims issued by GoLoginServer.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Activated int64  `json:"activated"`
	jwt.RegisteredClaims
}

// Provider holds the current access token and exposes the readiness
// and owner-id checks the reconciliation engine performs before every
// sync. Safe for concurrent use.
type Provider struct {
	mu     sync.RWMutex
	issuer string
	secret []byte
	token  string
	claims *Claims
}

// NewProvider creates a session provider. A non-empty secret enables
// signature verification; without one, claims are parsed unverified,
// which is acceptable client-side since the service re-validates every
// request.
func NewProvider(issuer, secret string) *Provider {
	p := &Provider{issuer: issuer}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// SetToken installs a new access token, replacing any previous one.
// An unparseable token clears the session.
func (p *Provider) SetToken(token string) error {
	claims, err := p.parse(token)
	if err != nil {
		p.mu.Lock()
		p.token = ""
		p.claims = nil
		p.mu.Unlock()
		return err
	}
	p.mu.Lock()
	p.token = token
	p.claims = claims
	p.mu.Unlock()
	log.Printf("Session established for user %d (%s)", claims.UserID, claims.Username)
	return nil
}

// Clear drops the current session.
func (p *Provider) Clear() {
	p.mu.Lock()
	p.token = ""
	p.claims = nil
	p.mu.Unlock()
}

// IsReady reports whether a usable, unexpired session exists.
func (p *Provider) IsReady() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.claims == nil {
		return false
	}
	if p.claims.ExpiresAt != nil && p.claims.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// CurrentOwnerID returns the owner id for the session, or empty if the
// session is not ready.
func (p *Provider) CurrentOwnerID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.claims == nil {
		return ""
	}
	if p.claims.ExpiresAt != nil && p.claims.ExpiresAt.Before(time.Now()) {
		return ""
	}
	return strconv.FormatInt(p.claims.UserID, 10)
}

// Token returns the raw access token for the Authorization header.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

func (p *Provider) parse(token string) (*Claims, error) {
	claims := &Claims{}
	if p.secret != nil {
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return p.secret, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
		if !parsed.Valid {
			return nil, fmt.Errorf("invalid token claims")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}
	if p.issuer != "" && claims.Issuer != "" && claims.Issuer != p.issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", p.issuer, claims.Issuer)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("token missing user id")
	}
	return claims, nil
}

// IssueToken signs a token for the given user. Used by the reference
// service's dev login endpoint and by tests.
func IssueToken(secret, issuer string, userID int64, username string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		Username:  username,
		Activated: time.Now().Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
