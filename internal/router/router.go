// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-fare-settlement/internal/config"
	"github.com/iliyamo/train-fare-settlement/internal/handler"
	"github.com/iliyamo/train-fare-settlement/internal/middleware"
	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// Handlers collects every handler the router mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Balances     *handler.BalanceHandler
	Transactions *handler.TransactionHandler
	Trains       *handler.TrainHandler
	Stations     *handler.StationHandler
	Travels      *handler.TravelHandler
	Payments     *handler.PaymentHandler
}

// Register mounts all routes. Public auth endpoints are rate limited;
// the catalog reads (trains, stations, travels) sit behind the Redis
// response cache. Everything else under /v1 requires a valid JWT, with
// admin-only mutations gated by role.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Session endpoints, no JWT required.
	authG := e.Group("/v1/auth", limiter)
	authG.POST("/register", h.Auth.Register)
	authG.POST("/login", h.Auth.Login)
	authG.POST("/refresh", h.Auth.Refresh)
	authG.POST("/logout", h.Auth.Logout)

	v1 := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	admin := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin))

	v1.GET("/me", h.Auth.Me)
	v1.POST("/logout", h.Auth.Logout) // revoke-all via bearer token

	// ---- Users ----
	admin.GET("/users", h.Users.List)
	v1.GET("/users/:user_id", h.Users.Get)
	v1.PUT("/users/:user_id", h.Users.Update)
	v1.PATCH("/users/:user_id", h.Users.Update)
	admin.DELETE("/users/:user_id", h.Users.HardDelete)
	v1.DELETE("/users/:user_id/delete", h.Users.SoftDelete)

	// ---- Balances ----
	v1.GET("/users/:user_id/balance", h.Balances.Get)
	admin.PUT("/users/:user_id/balance", h.Balances.Put)
	admin.DELETE("/users/:user_id/balance", h.Balances.HardDelete)
	admin.DELETE("/users/:user_id/balance/delete", h.Balances.SoftDelete)

	// ---- Transactions ----
	txBase := "/users/:user_id/balances/:balance_id/transactions"
	v1.GET(txBase, h.Transactions.List)
	v1.POST(txBase, h.Transactions.Create)
	v1.GET(txBase+"/:transaction_id", h.Transactions.Get)
	admin.PUT(txBase+"/:transaction_id", h.Transactions.Update)
	admin.PATCH(txBase+"/:transaction_id", h.Transactions.Update)
	admin.DELETE(txBase+"/:transaction_id", h.Transactions.HardDelete)
	v1.DELETE(txBase+"/:transaction_id/delete", h.Transactions.SoftDelete)

	// ---- Trains ----
	v1.GET("/trains", h.Trains.List, cache)
	v1.GET("/trains/:train_id", h.Trains.Get, cache)
	admin.POST("/trains", h.Trains.Create)
	admin.PUT("/trains/:train_id", h.Trains.Update)
	admin.DELETE("/trains/:train_id", h.Trains.HardDelete)
	admin.DELETE("/trains/:train_id/delete", h.Trains.SoftDelete)

	// ---- Stations ----
	v1.GET("/trains/:train_id/stations", h.Stations.List, cache)
	v1.GET("/trains/:train_id/stations/:station_id", h.Stations.Get, cache)
	admin.POST("/trains/:train_id/stations", h.Stations.Create)
	admin.PUT("/trains/:train_id/stations/:station_id", h.Stations.Update)
	admin.PATCH("/trains/:train_id/stations/:station_id", h.Stations.Update)
	admin.DELETE("/trains/:train_id/stations/:station_id", h.Stations.HardDelete)
	admin.DELETE("/trains/:train_id/stations/:station_id/delete", h.Stations.SoftDelete)

	// ---- Travels ----
	v1.GET("/trains/:train_id/travels", h.Travels.List, cache)
	v1.GET("/trains/:train_id/travels/:travel_id", h.Travels.Get, cache)
	admin.POST("/trains/:train_id/travels", h.Travels.Create)
	admin.PUT("/trains/:train_id/travels/:travel_id", h.Travels.Update)
	admin.PATCH("/trains/:train_id/travels/:travel_id", h.Travels.Update)
	admin.DELETE("/trains/:train_id/travels/:travel_id", h.Travels.HardDelete)
	admin.DELETE("/trains/:train_id/travels/:travel_id/delete", h.Travels.SoftDelete)

	// ---- Payments ----
	payBase := "/users/:user_id/payments"
	v1.GET(payBase, h.Payments.List)
	v1.POST(payBase, h.Payments.Create) // handler restricts to the user role
	v1.GET(payBase+"/:payment_id", h.Payments.Get)
	admin.PUT(payBase+"/:payment_id", h.Payments.Update)
	admin.DELETE(payBase+"/:payment_id", h.Payments.HardDelete)
	v1.DELETE(payBase+"/:payment_id/delete", h.Payments.SoftDelete)
}
