package server

import (
	"fmt"
	"net/http"

	"takkeh/internal/domain"
	"takkeh/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderLineRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type placeOrderRequest struct {
	BuyerID      int64              `json:"buyer_id"`
	ShopID       int64              `json:"shop_id" binding:"required"`
	Lines        []orderLineRequest `json:"lines" binding:"required,min=1,dive"`
	Instructions *string            `json:"instructions"`
	DeliveryFee  *decimal.Decimal   `json:"delivery_fee"`
	PromoCodeID  *int64             `json:"promo_code_id"`
	Lat          *float64           `json:"lat"`
	Lon          *float64           `json:"lon"`
	Address      *string            `json:"address"`
}

func (r placeOrderRequest) input() service.PlaceOrderInput {
	in := service.PlaceOrderInput{
		BuyerID: r.BuyerID,
		ShopID:  r.ShopID,
		Lines:   make([]domain.LineRequest, 0, len(r.Lines)),
		Meta: domain.OrderMeta{
			Instructions: r.Instructions,
			PromoCodeID:  r.PromoCodeID,
			Lat:          r.Lat,
			Lon:          r.Lon,
			Address:      r.Address,
		},
	}
	if r.DeliveryFee != nil {
		in.Meta.DeliveryFee = *r.DeliveryFee
	}
	for _, l := range r.Lines {
		in.Lines = append(in.Lines, domain.LineRequest{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return in
}

func (s *Server) placeOrderHandler(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	in := req.input()

	if raw := c.GetHeader(idempotencyHeader); raw != "" {
		key, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(c, fmt.Errorf("%w: %s must be a UUID", domain.ErrInvalidRequest, idempotencyHeader))
			return
		}
		in.IdempotencyKey = &key
	}

	res, err := s.orders.PlaceOrder(c.Request.Context(), principal(c), in)
	if err != nil {
		s.respondError(c, err)
		return
	}

	status, msg := http.StatusCreated, "order placed"
	if res.Replayed {
		status, msg = http.StatusOK, "order already placed"
	}
	body := gin.H{"order_id": res.OrderID, "message": msg}
	if !res.Replayed {
		body["total_price"] = money(res.Total)
	}
	c.JSON(status, body)
}

func (s *Server) getOrderHandler(c *gin.Context) {
	id, err := idParam(c, "orderId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	order, err := s.orders.GetOrder(c.Request.Context(), principal(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderJSON(*order))
}

func (s *Server) listShopOrdersHandler(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	orders, err := s.orders.ListShopOrders(c.Request.Context(), principal(c), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": mapSlice(orders, toOrderJSON)})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) updateOrderStatusHandler(c *gin.Context) {
	id, err := idParam(c, "orderId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	if err := s.orders.UpdateStatus(c.Request.Context(), principal(c), id, domain.OrderStatus(req.Status)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
}

func (s *Server) listOpenOrdersHandler(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	orders, err := s.orders.ListOpenOrders(c.Request.Context(), principal(c), c.Query("city"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": mapSlice(orders, toOrderJSON)})
}

func (s *Server) takeOrderHandler(c *gin.Context) {
	id, err := idParam(c, "orderId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.orders.TakeOrder(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order taken"})
}
