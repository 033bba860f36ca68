package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/farmmarket/internal/handlers"
	"github.com/Skotchmaster/farmmarket/internal/middleware/metrics"
	"github.com/Skotchmaster/farmmarket/internal/models"
	"github.com/Skotchmaster/farmmarket/internal/service/token"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	CatalogHandler *handlers.CatalogHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	AdminHandler   *handlers.AdminHandler
	SearchHandler  *handlers.SearchHandler
	TokenService   *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", metrics.Handler())

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)
	v1.POST("/become-farmer", d.AuthHandler.BecomeFarmer)

	profile := v1.Group("/profile", d.TokenService.AutoRefreshMiddleware)
	profile.GET("", d.AuthHandler.Profile)
	profile.PATCH("", d.AuthHandler.UpdateProfile)

	// public catalog
	v1.GET("/products", d.CatalogHandler.ListProducts)
	v1.GET("/products/:id", d.CatalogHandler.ProductDetail)
	v1.GET("/featured", d.CatalogHandler.Featured)
	v1.GET("/categories", d.CatalogHandler.Categories)
	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	farmer := v1.Group("/farmer", d.TokenService.RequireRoles(models.RoleFarmer))
	farmer.GET("/products", d.ProductHandler.MyProducts)
	farmer.POST("/products", d.ProductHandler.CreateProduct)
	farmer.PATCH("/products/:id", d.ProductHandler.UpdateProduct)
	farmer.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	farmer.POST("/products/:id/toggle", d.ProductHandler.ToggleProduct)

	cart := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:id", d.CartHandler.UpdateCart)
	cart.DELETE("/:id", d.CartHandler.RemoveFromCart)
	cart.GET("/count", d.CartHandler.CartCount)

	orders := v1.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.POST("/checkout", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.MyOrders)
	orders.GET("/:id", d.OrderHandler.OrderDetail)
	orders.POST("/:id/status", d.OrderHandler.UpdateStatus)

	admin := v1.Group("/admin", d.TokenService.RequireRoles(models.RoleAdmin))
	admin.GET("/dashboard", d.AdminHandler.Dashboard)
	admin.GET("/farmers", d.AdminHandler.ListFarmers)
	admin.POST("/farmers/:id/approve", d.AdminHandler.ApproveFarmer)
	admin.POST("/farmers/:id/reject", d.AdminHandler.RejectFarmer)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.POST("/users/:id/block", d.AdminHandler.BlockUser)
	admin.POST("/users/:id/unblock", d.AdminHandler.UnblockUser)
	admin.DELETE("/users/:id", d.AdminHandler.DeleteUser)
	admin.GET("/orders", d.AdminHandler.ListOrders)
	admin.GET("/orders/:id", d.AdminHandler.OrderDetail)
	admin.GET("/products", d.AdminHandler.ListProducts)
	admin.POST("/products/:id/toggle", d.AdminHandler.ToggleProduct)
	admin.GET("/reports", d.AdminHandler.Reports)
}
