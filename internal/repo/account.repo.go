package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"takkeh/internal/domain"
)

// AccountRepo stores the credential rows of all three principal kinds.
type AccountRepo interface {
	CreateUser(ctx context.Context, u *domain.User) (int64, error)
	CreateShop(ctx context.Context, s *domain.Shop) (int64, error)
	CreateDriver(ctx context.Context, d *domain.Driver) (int64, error)
	FindCredential(ctx context.Context, kind domain.PrincipalKind, handle string) (*domain.Credential, error)
	UpdatePasswordHash(ctx context.Context, kind domain.PrincipalKind, id int64, hash string) error
}

type accountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

func (r *accountRepo) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if IsUniqueViolation(err) {
		return 0, domain.ErrConflict
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *accountRepo) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.insert(ctx,
		"INSERT INTO users (name, phone_number, password_hash) VALUES ($1, $2, $3) RETURNING user_id",
		u.Name, u.Phone, u.PasswordHash)
	if err == nil {
		u.ID = id
	}
	return id, err
}

func (r *accountRepo) CreateShop(ctx context.Context, s *domain.Shop) (int64, error) {
	id, err := r.insert(ctx, `
		INSERT INTO shops (shop_name, description, location, email, phone_number, password_hash,
			photo_url, background_photo_url, open_time, close_time, lat_t, lon_t)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING shop_id`,
		s.Name, s.Description, s.Location, s.Email, s.Phone, s.PasswordHash,
		s.PhotoURL, s.BackgroundPhotoURL, s.OpenTime, s.CloseTime, s.Lat, s.Lon)
	if err == nil {
		s.ID = id
	}
	return id, err
}

func (r *accountRepo) CreateDriver(ctx context.Context, d *domain.Driver) (int64, error) {
	id, err := r.insert(ctx, `
		INSERT INTO drivers (name, phone_number, vehicle_type, availability, lat_t, lon_t, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING driver_id`,
		d.Name, d.Phone, d.VehicleType, d.Available, d.Lat, d.Lon, d.PasswordHash)
	if err == nil {
		d.ID = id
	}
	return id, err
}

// credentialTables maps a kind to its table, id column and sign-in handle column.
var credentialTables = map[domain.PrincipalKind][3]string{
	domain.KindUser:   {"users", "user_id", "phone_number"},
	domain.KindShop:   {"shops", "shop_id", "email"},
	domain.KindDriver: {"drivers", "driver_id", "phone_number"},
}

func (r *accountRepo) FindCredential(ctx context.Context, kind domain.PrincipalKind, handle string) (*domain.Credential, error) {
	t, ok := credentialTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown principal kind %q", kind)
	}
	c := domain.Credential{Kind: kind}
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s, password_hash FROM %s WHERE %s = $1", t[1], t[0], t[2]), handle,
	).Scan(&c.ID, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *accountRepo) UpdatePasswordHash(ctx context.Context, kind domain.PrincipalKind, id int64, hash string) error {
	t, ok := credentialTables[kind]
	if !ok {
		return fmt.Errorf("unknown principal kind %q", kind)
	}
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET password_hash = $1 WHERE %s = $2", t[0], t[1]), hash, id)
	return err
}
