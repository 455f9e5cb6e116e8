package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrConfig is returned by NewTokenIssuer for unusable settings. It is meant
// to stop the process at start-up, never to surface per request.
var ErrConfig = errors.New("invalid token issuer config")

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// Config holds the signing settings shared by both token kinds.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenIssuer mints and verifies access tokens and refresh envelopes.
// It holds no mutable state and is safe for concurrent use.
type TokenIssuer struct {
	issuer     string
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option customises a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer validates cfg and derives the signing keys.
func NewTokenIssuer(cfg Config, opts ...Option) (*TokenIssuer, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: secret must be at least %d bytes", ErrConfig, MinSecretLength)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("%w: empty issuer", ErrConfig)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("%w: access lifetime must be shorter than refresh lifetime", ErrConfig)
	}

	accessKey, err := deriveKey(cfg.Secret, accessKeyInfo)
	if err != nil {
		return nil, err
	}
	refreshKey, err := deriveKey(cfg.Secret, refreshKeyInfo)
	if err != nil {
		return nil, err
	}

	i := &TokenIssuer{
		issuer:     cfg.Issuer,
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RefreshTTL is the lifetime given to new session rows and envelopes.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// AccessTTL is the lifetime of access tokens.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

func (i *TokenIssuer) parser(extra ...jwt.ParserOption) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	}
	return jwt.NewParser(append(opts, extra...)...)
}

func (i *TokenIssuer) keyFunc(key []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return key, nil }
}
