package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Menu struct {
	ID          int64
	ShopID      int64
	Name        string
	Description string
	CreatedAt   time.Time
}

type Meal struct {
	ID        int64
	MenuID    int64
	ShopID    int64
	Name      string
	PhotoURL  string
	Content   string
	Price     decimal.Decimal
	CreatedAt time.Time
}

type MealPatch struct {
	Name     *string
	PhotoURL *string
	Content  *string
	Price    *decimal.Decimal
}

func (p MealPatch) Empty() bool {
	return p.Name == nil && p.PhotoURL == nil && p.Content == nil && p.Price == nil
}

// PricedItem is the slice of a meal the order workflow reads.
type PricedItem struct {
	ID     int64
	ShopID int64
	Price  decimal.Decimal
}
