package domain

import "time"

type User struct {
	ID           int64
	Name         string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

type Shop struct {
	ID                 int64
	Name               string
	Description        string
	Location           string
	Email              string
	Phone              string
	PasswordHash       string
	PhotoURL           string
	BackgroundPhotoURL string
	OpenTime           string
	CloseTime          string
	Lat                *float64
	Lon                *float64
	Followers          int64
	NumOrders          int64
	CreatedAt          time.Time
}

// ShopPatch carries optional profile fields; nil means "leave unchanged".
type ShopPatch struct {
	Name               *string
	Description        *string
	Location           *string
	Phone              *string
	PhotoURL           *string
	BackgroundPhotoURL *string
	OpenTime           *string
	CloseTime          *string
	Lat                *float64
	Lon                *float64
}

func (p ShopPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Location == nil && p.Phone == nil &&
		p.PhotoURL == nil && p.BackgroundPhotoURL == nil && p.OpenTime == nil &&
		p.CloseTime == nil && p.Lat == nil && p.Lon == nil
}

type Driver struct {
	ID           int64
	Name         string
	Phone        string
	VehicleType  string
	Available    bool
	Lat          *float64
	Lon          *float64
	PasswordHash string
	CreatedAt    time.Time
}

// Credential is the handle-to-hash row every principal kind signs in with.
type Credential struct {
	ID           int64
	Kind         PrincipalKind
	PasswordHash string
}
