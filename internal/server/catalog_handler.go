package server

import (
	"net/http"

	"takkeh/internal/domain"
	"takkeh/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createMenuRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *Server) createMenuHandler(c *gin.Context) {
	var req createMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	menu, err := s.catalog.CreateMenu(c.Request.Context(), principal(c), req.Name, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMenuJSON(*menu))
}

func (s *Server) deleteMenuHandler(c *gin.Context) {
	id, err := idParam(c, "menuId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.catalog.DeleteMenu(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu deleted"})
}

func (s *Server) listMenusHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	menus, err := s.catalog.ListMenus(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menus": mapSlice(menus, toMenuJSON)})
}

type createMealRequest struct {
	Name     string          `json:"name" binding:"required"`
	PhotoURL string          `json:"photo_url" binding:"omitempty,url"`
	Content  string          `json:"content"`
	Price    decimal.Decimal `json:"price"`
}

func (s *Server) createMealHandler(c *gin.Context) {
	menuID, err := idParam(c, "menuId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req createMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	meal, err := s.catalog.CreateMeal(c.Request.Context(), principal(c), menuID, service.MealInput{
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Content:  req.Content,
		Price:    req.Price,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMealJSON(*meal))
}

type updateMealRequest struct {
	Name     *string          `json:"name" binding:"omitempty,min=1"`
	PhotoURL *string          `json:"photo_url" binding:"omitempty,url"`
	Content  *string          `json:"content"`
	Price    *decimal.Decimal `json:"price"`
}

func (s *Server) updateMealHandler(c *gin.Context) {
	id, err := idParam(c, "mealId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req updateMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	patch := domain.MealPatch{Name: req.Name, PhotoURL: req.PhotoURL, Content: req.Content, Price: req.Price}
	if err := s.catalog.UpdateMeal(c.Request.Context(), principal(c), id, patch); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meal updated"})
}

func (s *Server) deleteMealHandler(c *gin.Context) {
	id, err := idParam(c, "mealId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.catalog.DeleteMeal(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "meal deleted"})
}

func (s *Server) listMealsHandler(c *gin.Context) {
	id, err := idParam(c, "menuId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	meals, err := s.catalog.ListMeals(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": mapSlice(meals, toMealJSON)})
}
