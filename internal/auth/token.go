package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"takkeh/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "takkeh"

// MinSecretLen is the shortest HMAC key Tokens accepts.
const MinSecretLen = 32

var (
	ErrExpired   = fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	ErrMalformed = fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	ErrRevoked   = fmt.Errorf("%w: token revoked", domain.ErrUnauthorized)
)

// Denylist stores revoked token IDs until the token would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TTLs holds the default lifetime of a token per principal kind.
type TTLs map[domain.PrincipalKind]time.Duration

type claims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret   []byte
	ttls     TTLs
	denylist Denylist
	now      func() time.Time
}

type Option func(*Tokens)

func WithClock(now func() time.Time) Option {
	return func(t *Tokens) { t.now = now }
}

func WithDenylist(d Denylist) Option {
	return func(t *Tokens) { t.denylist = d }
}

func NewTokens(secret []byte, ttls TTLs, opts ...Option) (*Tokens, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLen)
	}
	t := &Tokens{
		secret: append([]byte(nil), secret...),
		ttls:   ttls,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL is the configured lifetime for kind, or one hour when none is set.
func (t *Tokens) TTL(kind domain.PrincipalKind) time.Duration {
	if d, ok := t.ttls[kind]; ok && d > 0 {
		return d
	}
	return time.Hour
}

// Issue signs a token for p that expires ttl from now.
func (t *Tokens) Issue(p domain.Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	if _, err := domain.ParsePrincipalKind(string(p.Kind)); err != nil || p.ID <= 0 {
		return "", fmt.Errorf("cannot issue token for principal %s", p)
	}

	now := t.now()
	c := claims{
		Kind: string(p.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(ttl))),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
}

// ceilSecond rounds t up to a whole second. NumericDate drops fractions, and
// truncating exp would end a token before its ttl has run.
func ceilSecond(t time.Time) time.Time {
	if down := t.Truncate(time.Second); !down.Equal(t) {
		return down.Add(time.Second)
	}
	return t
}

// Verify checks signature, expiry and revocation and returns the principal.
// Every failure wraps domain.ErrUnauthorized except a denylist lookup error.
func (t *Tokens) Verify(ctx context.Context, raw string) (domain.Principal, error) {
	c, err := t.parse(raw)
	if err != nil {
		return domain.Principal{}, err
	}

	kind, err := domain.ParsePrincipalKind(c.Kind)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Principal{}, fmt.Errorf("%w: bad subject", ErrMalformed)
	}

	if t.denylist != nil {
		revoked, err := t.denylist.IsRevoked(ctx, c.ID)
		if err != nil {
			return domain.Principal{}, fmt.Errorf("%w: denylist lookup: %v", domain.ErrStorage, err)
		}
		if revoked {
			return domain.Principal{}, ErrRevoked
		}
	}

	return domain.Principal{Kind: kind, ID: id}, nil
}

// Revoke denylists a still-valid token until its expiry.
func (t *Tokens) Revoke(ctx context.Context, raw string) error {
	if t.denylist == nil {
		return errors.New("token revocation is not configured")
	}
	c, err := t.parse(raw)
	if err != nil {
		return err
	}
	if err := t.denylist.Revoke(ctx, c.ID, c.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: revoke token: %v", domain.ErrStorage, err)
	}
	return nil
}

func (t *Tokens) parse(raw string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrMalformed)
	}
	return c, nil
}
