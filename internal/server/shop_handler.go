package server

import (
	"net/http"

	"takkeh/internal/domain"

	"github.com/gin-gonic/gin"
)

func (s *Server) listShopsHandler(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	shops, err := s.accounts.ListShops(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shops": mapSlice(shops, toShopJSON)})
}

func (s *Server) getShopHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	shop, err := s.accounts.GetShop(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toShopJSON(*shop))
}

type updateShopRequest struct {
	Name               *string  `json:"shop_name" binding:"omitempty,min=1"`
	Description        *string  `json:"description"`
	Location           *string  `json:"location"`
	Phone              *string  `json:"phone_number"`
	PhotoURL           *string  `json:"photo_url" binding:"omitempty,url"`
	BackgroundPhotoURL *string  `json:"background_photo_url" binding:"omitempty,url"`
	OpenTime           *string  `json:"open_time"`
	CloseTime          *string  `json:"close_time"`
	Lat                *float64 `json:"lat"`
	Lon                *float64 `json:"lon"`
}

func (s *Server) updateShopHandler(c *gin.Context) {
	var req updateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	patch := domain.ShopPatch{
		Name:               req.Name,
		Description:        req.Description,
		Location:           req.Location,
		Phone:              req.Phone,
		PhotoURL:           req.PhotoURL,
		BackgroundPhotoURL: req.BackgroundPhotoURL,
		OpenTime:           req.OpenTime,
		CloseTime:          req.CloseTime,
		Lat:                req.Lat,
		Lon:                req.Lon,
	}
	if err := s.accounts.UpdateShop(c.Request.Context(), principal(c), patch); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shop updated"})
}
