package server

import (
	"net/http"
	"slices"

	"takkeh/internal/domain"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	if s.production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(s.recovery(), requestID(), tracing(), s.requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.healthHandler)

	api := r.Group("/api")
	authed := s.authenticate()

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/users/signup", s.signupUserHandler)
		authGroup.POST("/users/signin", s.signinHandler(domain.KindUser))
		authGroup.POST("/shops/signup", s.signupShopHandler)
		authGroup.POST("/shops/signin", s.signinHandler(domain.KindShop))
		authGroup.POST("/drivers/signup", s.signupDriverHandler)
		authGroup.POST("/drivers/signin", s.signinHandler(domain.KindDriver))
		authGroup.POST("/logout", authed, s.logoutHandler)
	}

	shops := api.Group("/shops")
	{
		shops.GET("", s.listShopsHandler)
		shops.GET("/:shopId", s.getShopHandler)
		shops.GET("/:shopId/menus", s.listMenusHandler)
		shops.GET("/:shopId/posts", s.listShopPostsHandler)
		shops.GET("/:shopId/followers", s.listFollowersHandler)
		shops.POST("/:shopId/follow", authed, s.followHandler)
		shops.DELETE("/:shopId/follow", authed, s.unfollowHandler)
	}

	// Endpoints scoped to the authenticated shop or driver.
	api.PATCH("/shop/profile", authed, s.updateShopHandler)
	api.GET("/shop/orders", authed, s.listShopOrdersHandler)
	api.GET("/driver/orders", authed, s.listOpenOrdersHandler)

	menus := api.Group("/menus")
	{
		menus.POST("", authed, s.createMenuHandler)
		menus.DELETE("/:menuId", authed, s.deleteMenuHandler)
		menus.GET("/:menuId/meals", s.listMealsHandler)
		menus.POST("/:menuId/meals", authed, s.createMealHandler)
	}
	api.PATCH("/meals/:mealId", authed, s.updateMealHandler)
	api.DELETE("/meals/:mealId", authed, s.deleteMealHandler)

	orders := api.Group("/orders", authed)
	{
		orders.POST("", s.placeOrderHandler)
		orders.GET("/:orderId", s.getOrderHandler)
		orders.PATCH("/:orderId/status", s.updateOrderStatusHandler)
		orders.POST("/:orderId/take", s.takeOrderHandler)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", s.listRecentPostsHandler)
		posts.POST("", authed, s.createPostHandler)
		posts.GET("/:postId/comments", s.listCommentsHandler)
		posts.GET("/:postId/comments/count", s.commentCountHandler)
		posts.POST("/:postId/comments", authed, s.addCommentHandler)
		posts.DELETE("/:postId/comments/:commentId", authed, s.deleteCommentHandler)
		posts.GET("/:postId/likes", s.likeCountHandler)
		posts.POST("/:postId/likes", authed, s.likeHandler)
		posts.DELETE("/:postId/likes", authed, s.unlikeHandler)
		posts.GET("/:postId/likers", s.listLikersHandler)
	}

	api.GET("/categories", s.listCategoriesHandler)
	api.POST("/categories", authed, s.createCategoryHandler)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
	}
	if len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.corsOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.db.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
