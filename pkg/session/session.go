package session

import (
	"fmt"
	"time"

	"workorder-autopilot/pkg/config"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/fx"
)

var Module = fx.Module("session", fx.Provide(NewManager))

// Claims is the session payload carried in the signed cookie.
type Claims struct {
	UserID  int64  `json:"uid"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"adm"`
	jwt.Claims
}

// Manager issues and verifies HS256-signed session tokens.
type Manager struct {
	signer     jose.Signer
	secret     []byte
	ttl        time.Duration
	cookieName string
}

func NewManager(cfg *config.Config) (*Manager, error) {
	secret := []byte(cfg.Session.Secret)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build session signer: %w", err)
	}

	return &Manager{
		signer:     signer,
		secret:     secret,
		ttl:        cfg.Session.TTL,
		cookieName: cfg.Session.CookieName,
	}, nil
}

func (m *Manager) CookieName() string { return m.cookieName }

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a session token for the given user.
func (m *Manager) Issue(userID int64, email string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID,
		Email:   email,
		IsAdmin: isAdmin,
		Claims: jwt.Claims{
			IssuedAt: jwt.NewNumericDate(now),
			Expiry:   jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.Signed(m.signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Verify parses and validates a session token, returning its claims.
func (m *Manager) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("malformed session token: %w", err)
	}

	var claims Claims
	if err := parsed.Claims(m.secret, &claims); err != nil {
		return nil, fmt.Errorf("invalid session signature: %w", err)
	}

	if err := claims.Validate(jwt.Expected{Time: time.Now()}); err != nil {
		return nil, fmt.Errorf("expired session: %w", err)
	}

	return &claims, nil
}
