package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/delivergaz-api/internal/api/http/handlers"
	"github.com/spec-kit/delivergaz-api/internal/auth"
	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Products       *handlers.ProductsHandler
	Carts          *handlers.CartHandler
	Orders         *handlers.OrdersHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *auth.UserRateLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, cfg.Auth.ChangePassword)

	products := api.Group("/products")
	products.Get("/", cfg.Products.List)
	products.Get("/:id", cfg.Products.Get)

	// Cart routes serve guests (session header) and users alike.
	carts := api.Group("/carts", cfg.AuthMiddleware.Optional, cfg.RateLimiter.Middleware())
	carts.Get("/", cfg.Carts.Get)
	carts.Get("/count", cfg.Carts.Count)
	carts.Post("/add", cfg.Carts.AddItem)
	carts.Put("/update/:productId", cfg.Carts.UpdateItem)
	carts.Delete("/remove/:productId", cfg.Carts.RemoveItem)
	carts.Delete("/clear", cfg.Carts.Clear)

	orders := api.Group("/orders", cfg.AuthMiddleware.Handle, auth.RequireEmailVerified(), cfg.RateLimiter.Middleware())
	orders.Get("/", cfg.Orders.List)
	orders.Post("/", cfg.Orders.Create)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/", auth.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin), cfg.Users.List)
	users.Get("/:userId", auth.RequireOwnerOrRole("userId", domain.RoleAdmin, domain.RoleSuperAdmin), cfg.Users.Get)
}
