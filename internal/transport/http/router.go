package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/andrevks/qrdine/internal/handlers"
	"github.com/andrevks/qrdine/internal/service/token"
)

type Deps struct {
	AuthHandler       *handlers.AuthHandler
	RestaurantHandler *handlers.RestaurantHandler
	MenuHandler       *handlers.MenuHandler
	CartHandler       *handlers.CartHandler
	OrderHandler      *handlers.OrderHandler
	KPIHandler        *handlers.KPIHandler
	TokenService      *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.PATCH("/profile", d.AuthHandler.UpdateProfile, d.TokenService.RequireLogin)

	restaurants := v1.Group("/restaurants")
	restaurants.GET("/:code", d.RestaurantHandler.GetByCode)
	restaurants.GET("/:code/qr", d.RestaurantHandler.QRCode)
	restaurants.GET("/:code/menu", d.MenuHandler.GetMenu)
	restaurants.GET("/:code/menu/search", d.MenuHandler.SearchMenu)

	cart := v1.Group("/cart", d.TokenService.RequireLogin)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:id", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:id", d.CartHandler.RemoveFromCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	orders := v1.Group("/orders", d.TokenService.RequireLogin)
	orders.POST("", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.GET("/:id/events", d.OrderHandler.StreamOrder)
	orders.POST("/:id/rating", d.OrderHandler.Rate)

	staff := v1.Group("/staff", d.TokenService.RequireStaff)
	staff.POST("/restaurants", d.RestaurantHandler.CreateRestaurant)
	staff.GET("/restaurants/mine", d.RestaurantHandler.GetMine)
	staff.POST("/menu", d.MenuHandler.CreateItem)
	staff.PATCH("/menu/:id", d.MenuHandler.PatchItem)
	staff.DELETE("/menu/:id", d.MenuHandler.DeleteItem)
	staff.GET("/orders", d.OrderHandler.StaffQueue)
	staff.POST("/orders/:id/advance", d.OrderHandler.Advance)
	staff.GET("/kpis", d.KPIHandler.GetKPIs)
	staff.GET("/kpis/export", d.KPIHandler.Export)
}
