package server

import (
	"time"

	"takkeh/internal/domain"

	"github.com/shopspring/decimal"
)

type orderLineJSON struct {
	ItemID    int64  `json:"item_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderJSON struct {
	ID           int64           `json:"order_id"`
	BuyerID      int64           `json:"buyer_id"`
	ShopID       int64           `json:"shop_id"`
	Status       string          `json:"status"`
	TotalPrice   string          `json:"total_price"`
	DeliveryFee  string          `json:"delivery_fee"`
	Instructions *string         `json:"special_instructions,omitempty"`
	PromoCodeID  *int64          `json:"promo_code_id,omitempty"`
	Lat          *float64        `json:"lat,omitempty"`
	Lon          *float64        `json:"lon,omitempty"`
	Address      *string         `json:"address,omitempty"`
	Taken        bool            `json:"taken"`
	DriverID     *int64          `json:"driver_id,omitempty"`
	Lines        []orderLineJSON `json:"lines,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toOrderJSON(o domain.Order) orderJSON {
	out := orderJSON{
		ID:           o.ID,
		BuyerID:      o.BuyerID,
		ShopID:       o.ShopID,
		Status:       string(o.Status),
		TotalPrice:   money(o.TotalPrice),
		DeliveryFee:  money(o.DeliveryFee),
		Instructions: o.Instructions,
		PromoCodeID:  o.PromoCodeID,
		Lat:          o.Lat,
		Lon:          o.Lon,
		Address:      o.Address,
		Taken:        o.Taken,
		DriverID:     o.DriverID,
		CreatedAt:    o.CreatedAt,
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, orderLineJSON{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: money(l.UnitPrice)})
	}
	return out
}

type shopJSON struct {
	ID                 int64    `json:"shop_id"`
	Name               string   `json:"shop_name"`
	Description        string   `json:"description"`
	Location           string   `json:"location"`
	Phone              string   `json:"phone_number,omitempty"`
	PhotoURL           string   `json:"photo_url"`
	BackgroundPhotoURL string   `json:"background_photo_url"`
	OpenTime           string   `json:"open_time"`
	CloseTime          string   `json:"close_time"`
	Lat                *float64 `json:"lat,omitempty"`
	Lon                *float64 `json:"lon,omitempty"`
	Followers          int64    `json:"followers"`
	NumOrders          int64    `json:"num_orders"`
}

func toShopJSON(s domain.Shop) shopJSON {
	return shopJSON{
		ID:                 s.ID,
		Name:               s.Name,
		Description:        s.Description,
		Location:           s.Location,
		Phone:              s.Phone,
		PhotoURL:           s.PhotoURL,
		BackgroundPhotoURL: s.BackgroundPhotoURL,
		OpenTime:           s.OpenTime,
		CloseTime:          s.CloseTime,
		Lat:                s.Lat,
		Lon:                s.Lon,
		Followers:          s.Followers,
		NumOrders:          s.NumOrders,
	}
}

type menuJSON struct {
	ID          int64  `json:"menu_id"`
	ShopID      int64  `json:"shop_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toMenuJSON(m domain.Menu) menuJSON {
	return menuJSON{ID: m.ID, ShopID: m.ShopID, Name: m.Name, Description: m.Description}
}

type mealJSON struct {
	ID       int64  `json:"meal_id"`
	MenuID   int64  `json:"menu_id"`
	ShopID   int64  `json:"shop_id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
	Content  string `json:"content"`
	Price    string `json:"price"`
}

func toMealJSON(m domain.Meal) mealJSON {
	return mealJSON{ID: m.ID, MenuID: m.MenuID, ShopID: m.ShopID, Name: m.Name, PhotoURL: m.PhotoURL, Content: m.Content, Price: money(m.Price)}
}

type postJSON struct {
	ID         int64     `json:"post_id"`
	ShopID     int64     `json:"shop_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	PhotoURL   string    `json:"photo_url"`
	CategoryID *int64    `json:"category_id"`
	Likes      int64     `json:"likes"`
	Comments   int64     `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPostJSON(p domain.Post) postJSON {
	return postJSON{ID: p.ID, ShopID: p.ShopID, Title: p.Title, Content: p.Content, PhotoURL: p.PhotoURL,
		CategoryID: p.CategoryID, Likes: p.Likes, Comments: p.Comments, CreatedAt: p.CreatedAt}
}

type categoryJSON struct {
	ID   int64  `json:"category_id"`
	Name string `json:"name"`
}

func toCategoryJSON(c domain.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name}
}

type commentJSON struct {
	ID        int64     `json:"comment_id"`
	PostID    int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toCommentJSON(c domain.Comment) commentJSON {
	return commentJSON{ID: c.ID, PostID: c.PostID, UserID: c.UserID, Content: c.Content, CreatedAt: c.CreatedAt}
}

// mapSlice converts a list of domain values with f, never returning nil.
func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
