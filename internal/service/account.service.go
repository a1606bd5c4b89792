package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"takkeh/internal/auth"
	"takkeh/internal/domain"
	"takkeh/internal/repo"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
)

type SignupUserInput struct {
	Name     string
	Phone    string
	Password string
}

type SignupShopInput struct {
	Name               string
	Description        string
	Location           string
	Email              string
	Phone              string
	Password           string
	PhotoURL           string
	BackgroundPhotoURL string
	OpenTime           string
	CloseTime          string
	Lat                *float64
	Lon                *float64
}

type SignupDriverInput struct {
	Name        string
	Phone       string
	VehicleType string
	Password    string
	Lat         *float64
	Lon         *float64
}

type AuthResult struct {
	Principal domain.Principal
	Token     string
	ExpiresIn time.Duration
}

type AccountService interface {
	SignupUser(ctx context.Context, in SignupUserInput) (AuthResult, error)
	SignupShop(ctx context.Context, in SignupShopInput) (AuthResult, error)
	SignupDriver(ctx context.Context, in SignupDriverInput) (AuthResult, error)
	Signin(ctx context.Context, kind domain.PrincipalKind, handle, password string) (AuthResult, error)
	Logout(ctx context.Context, token string) error

	GetShop(ctx context.Context, id int64) (*domain.Shop, error)
	ListShops(ctx context.Context, limit, offset int) ([]domain.Shop, error)
	UpdateShop(ctx context.Context, p domain.Principal, patch domain.ShopPatch) error
}

type accountService struct {
	accounts  repo.AccountRepo
	shops     repo.ShopRepo
	hasher    *auth.Hasher
	tokens    *auth.Tokens
	logger    *slog.Logger
	dummyHash string
}

func NewAccountService(
	accounts repo.AccountRepo,
	shops repo.ShopRepo,
	hasher *auth.Hasher,
	tokens *auth.Tokens,
	logger *slog.Logger,
) AccountService {
	// Signing in with an unknown handle still pays for one hash verification.
	dummy, _ := hasher.Hash("takkeh-timing-equalizer")
	return &accountService{
		accounts:  accounts,
		shops:     shops,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger.With("component", "account_service"),
		dummyHash: dummy,
	}
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	if len(pw) > maxPasswordLen {
		return invalid("password must be at most %d characters", maxPasswordLen)
	}
	return nil
}

func (s *accountService) SignupUser(ctx context.Context, in SignupUserInput) (AuthResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" {
		return AuthResult{}, invalid("phone number is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return AuthResult{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	u := &domain.User{Name: strings.TrimSpace(in.Name), Phone: in.Phone, PasswordHash: hash}
	if _, err := s.accounts.CreateUser(ctx, u); err != nil {
		return AuthResult{}, s.signupErr("user", err)
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", u.ID)
	return s.issue(domain.Principal{Kind: domain.KindUser, ID: u.ID})
}

func (s *accountService) SignupShop(ctx context.Context, in SignupShopInput) (AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return AuthResult{}, invalid("a valid email is required")
	}
	if in.Name == "" {
		return AuthResult{}, invalid("shop name is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return AuthResult{}, err
	}
	if err := checkCoords(in.Lat, in.Lon); err != nil {
		return AuthResult{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	shop := &domain.Shop{
		Name:               in.Name,
		Description:        in.Description,
		Location:           in.Location,
		Email:              in.Email,
		Phone:              in.Phone,
		PasswordHash:       hash,
		PhotoURL:           in.PhotoURL,
		BackgroundPhotoURL: in.BackgroundPhotoURL,
		OpenTime:           in.OpenTime,
		CloseTime:          in.CloseTime,
		Lat:                in.Lat,
		Lon:                in.Lon,
	}
	if _, err := s.accounts.CreateShop(ctx, shop); err != nil {
		return AuthResult{}, s.signupErr("shop", err)
	}
	s.logger.InfoContext(ctx, "shop signed up", "shop_id", shop.ID)
	return s.issue(domain.Principal{Kind: domain.KindShop, ID: shop.ID})
}

func (s *accountService) SignupDriver(ctx context.Context, in SignupDriverInput) (AuthResult, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone == "" {
		return AuthResult{}, invalid("phone number is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return AuthResult{}, err
	}
	if err := checkCoords(in.Lat, in.Lon); err != nil {
		return AuthResult{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, err
	}

	d := &domain.Driver{
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		VehicleType:  in.VehicleType,
		Available:    true,
		Lat:          in.Lat,
		Lon:          in.Lon,
		PasswordHash: hash,
	}
	if _, err := s.accounts.CreateDriver(ctx, d); err != nil {
		return AuthResult{}, s.signupErr("driver", err)
	}
	s.logger.InfoContext(ctx, "driver signed up", "driver_id", d.ID)
	return s.issue(domain.Principal{Kind: domain.KindDriver, ID: d.ID})
}

func (s *accountService) signupErr(kind string, err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return conflict("%s already registered", kind)
	}
	return storageErr("create "+kind, err)
}

// Signin checks the password for the handle of the given kind (phone for
// users and drivers, email for shops) and issues a token.
func (s *accountService) Signin(ctx context.Context, kind domain.PrincipalKind, handle, password string) (AuthResult, error) {
	handle = strings.TrimSpace(handle)
	if kind == domain.KindShop {
		handle = strings.ToLower(handle)
	}
	if handle == "" || password == "" {
		return AuthResult{}, invalid("credentials are required")
	}

	cred, err := s.accounts.FindCredential(ctx, kind, handle)
	if err != nil {
		return AuthResult{}, storageErr("find credential", err)
	}
	if cred == nil {
		s.hasher.Verify(password, s.dummyHash)
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if !s.hasher.Verify(password, cred.PasswordHash) {
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	if s.hasher.NeedsRehash(cred.PasswordHash) {
		if hash, err := s.hasher.Hash(password); err == nil {
			if err := s.accounts.UpdatePasswordHash(ctx, kind, cred.ID, hash); err != nil {
				s.logger.WarnContext(ctx, "password rehash failed", "kind", kind, "id", cred.ID, "err", err)
			}
		}
	}
	return s.issue(domain.Principal{Kind: kind, ID: cred.ID})
}

func (s *accountService) issue(p domain.Principal) (AuthResult, error) {
	ttl := s.tokens.TTL(p.Kind)
	token, err := s.tokens.Issue(p, ttl)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Principal: p, Token: token, ExpiresIn: ttl}, nil
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

func (s *accountService) GetShop(ctx context.Context, id int64) (*domain.Shop, error) {
	shop, err := s.shops.FindById(ctx, id)
	if err != nil {
		return nil, storageErr("find shop", err)
	}
	if shop == nil {
		return nil, notFound("shop %d", id)
	}
	return shop, nil
}

func (s *accountService) ListShops(ctx context.Context, limit, offset int) ([]domain.Shop, error) {
	if offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	shops, err := s.shops.List(ctx, clampLimit(limit), offset)
	if err != nil {
		return nil, storageErr("list shops", err)
	}
	return shops, nil
}

func (s *accountService) UpdateShop(ctx context.Context, p domain.Principal, patch domain.ShopPatch) error {
	if err := p.Require(domain.KindShop); err != nil {
		return err
	}
	if patch.Empty() {
		return invalid("no fields to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return invalid("shop name must not be empty")
	}
	if err := checkCoords(patch.Lat, patch.Lon); err != nil {
		return err
	}

	ok, err := s.shops.Update(ctx, p.ID, patch)
	if err != nil {
		return storageErr("update shop", err)
	}
	if !ok {
		return notFound("shop %d", p.ID)
	}
	return nil
}

func checkCoords(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return invalid("latitude out of range")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return invalid("longitude out of range")
	}
	return nil
}
