package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID             int64
	BuyerID        int64
	ShopID         int64
	Status         OrderStatus
	TotalPrice     decimal.Decimal
	DeliveryFee    decimal.Decimal
	Instructions   *string
	PromoCodeID    *int64
	Lat            *float64
	Lon            *float64
	Address        *string
	Taken          bool
	DriverID       *int64
	IdempotencyKey *uuid.UUID
	// RequestFingerprint identifies the request body that used IdempotencyKey.
	RequestFingerprint string
	Lines              []OrderLine
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LineRequest is an unresolved (item, quantity) pair as submitted by the buyer.
type LineRequest struct {
	ItemID   int64
	Quantity int
}

// OrderLine is a LineRequest priced against the menu at resolution time.
type OrderLine struct {
	ItemID    int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderTotal sums the line subtotals without touching floating point.
func OrderTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

type OrderMeta struct {
	Instructions *string
	DeliveryFee  decimal.Decimal
	PromoCodeID  *int64
	Lat          *float64
	Lon          *float64
	Address      *string
}
