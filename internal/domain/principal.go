package domain

import "fmt"

type PrincipalKind string

const (
	KindUser   PrincipalKind = "user"
	KindShop   PrincipalKind = "shop"
	KindDriver PrincipalKind = "driver"
)

func ParsePrincipalKind(s string) (PrincipalKind, error) {
	switch k := PrincipalKind(s); k {
	case KindUser, KindShop, KindDriver:
		return k, nil
	}
	return "", fmt.Errorf("unknown principal kind %q", s)
}

// Principal is an authenticated actor. Only the kind and the numeric identity
// travel inside a token; everything else is loaded from storage by ID.
type Principal struct {
	Kind PrincipalKind
	ID   int64
}

func (p Principal) Is(kind PrincipalKind) bool {
	return p.Kind == kind && p.ID > 0
}

// Require returns ErrForbidden unless the principal is of the given kind.
func (p Principal) Require(kind PrincipalKind) error {
	if !p.Is(kind) {
		return fmt.Errorf("%w: requires %s principal", ErrForbidden, kind)
	}
	return nil
}

func (p Principal) String() string {
	return fmt.Sprintf("%s:%d", p.Kind, p.ID)
}
