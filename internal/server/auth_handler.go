package server

import (
	"net/http"

	"takkeh/internal/domain"
	"takkeh/internal/service"

	"github.com/gin-gonic/gin"
)

type signupUserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone_number" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type signupShopRequest struct {
	Name               string   `json:"shop_name" binding:"required"`
	Description        string   `json:"description"`
	Location           string   `json:"location"`
	Email              string   `json:"email" binding:"required,email"`
	Phone              string   `json:"phone_number"`
	Password           string   `json:"password" binding:"required"`
	PhotoURL           string   `json:"photo_url" binding:"omitempty,url"`
	BackgroundPhotoURL string   `json:"background_photo_url" binding:"omitempty,url"`
	OpenTime           string   `json:"open_time"`
	CloseTime          string   `json:"close_time"`
	Lat                *float64 `json:"lat"`
	Lon                *float64 `json:"lon"`
}

type signupDriverRequest struct {
	Name        string   `json:"name" binding:"required"`
	Phone       string   `json:"phone_number" binding:"required"`
	VehicleType string   `json:"vehicle_type"`
	Password    string   `json:"password" binding:"required"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type signinRequest struct {
	Phone    string `json:"phone_number"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) respondAuth(c *gin.Context, status int, res service.AuthResult, msg string) {
	c.JSON(status, gin.H{
		"message":    msg,
		"token":      res.Token,
		"token_type": "Bearer",
		"expires_in": int64(res.ExpiresIn.Seconds()),
		"kind":       res.Principal.Kind,
		"id":         res.Principal.ID,
	})
}

func (s *Server) signupUserHandler(c *gin.Context) {
	var req signupUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	res, err := s.accounts.SignupUser(c.Request.Context(), service.SignupUserInput{
		Name: req.Name, Phone: req.Phone, Password: req.Password,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondAuth(c, http.StatusCreated, res, "user registered")
}

func (s *Server) signupShopHandler(c *gin.Context) {
	var req signupShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	res, err := s.accounts.SignupShop(c.Request.Context(), service.SignupShopInput{
		Name:               req.Name,
		Description:        req.Description,
		Location:           req.Location,
		Email:              req.Email,
		Phone:              req.Phone,
		Password:           req.Password,
		PhotoURL:           req.PhotoURL,
		BackgroundPhotoURL: req.BackgroundPhotoURL,
		OpenTime:           req.OpenTime,
		CloseTime:          req.CloseTime,
		Lat:                req.Lat,
		Lon:                req.Lon,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondAuth(c, http.StatusCreated, res, "shop registered")
}

func (s *Server) signupDriverHandler(c *gin.Context) {
	var req signupDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	res, err := s.accounts.SignupDriver(c.Request.Context(), service.SignupDriverInput{
		Name:        req.Name,
		Phone:       req.Phone,
		VehicleType: req.VehicleType,
		Password:    req.Password,
		Lat:         req.Lat,
		Lon:         req.Lon,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.respondAuth(c, http.StatusCreated, res, "driver registered")
}

// signinHandler signs in by email for shops and by phone number otherwise.
func (s *Server) signinHandler(kind domain.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondBindError(c, err)
			return
		}
		handle := req.Phone
		if kind == domain.KindShop {
			handle = req.Email
		}
		res, err := s.accounts.Signin(c.Request.Context(), kind, handle, req.Password)
		if err != nil {
			s.respondError(c, err)
			return
		}
		s.respondAuth(c, http.StatusOK, res, "signed in")
	}
}

func (s *Server) logoutHandler(c *gin.Context) {
	if err := s.accounts.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}
