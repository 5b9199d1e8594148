package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-fare-settlement/internal/config"
	"github.com/iliyamo/train-fare-settlement/internal/database"
	"github.com/iliyamo/train-fare-settlement/internal/handler"
	"github.com/iliyamo/train-fare-settlement/internal/ledger"
	"github.com/iliyamo/train-fare-settlement/internal/queue"
	"github.com/iliyamo/train-fare-settlement/internal/repository"
	"github.com/iliyamo/train-fare-settlement/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Nil when Redis is unreachable; limiter and cache then pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	users := repository.NewUserRepo(db)
	balances := repository.NewBalanceRepo(db)
	transactions := repository.NewTransactionRepo(db)
	trains := repository.NewTrainRepo(db)
	stations := repository.NewStationRepo(db)
	travels := repository.NewTravelRepo(db)
	payments := repository.NewPaymentRepo(db)
	tokens := repository.NewTokenRepo(db)

	engine := ledger.NewEngine(db, balances, transactions, travels, payments, cfg.ReverseOnDelete)

	go func() {
		if err := queue.StartSettlementConsumer(); err != nil {
			log.Printf("settlement consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, db, users, balances, tokens),
		Users:        handler.NewUserHandler(cfg, users, balances, transactions, payments, tokens),
		Balances:     handler.NewBalanceHandler(balances),
		Transactions: handler.NewTransactionHandler(engine, transactions),
		Trains:       handler.NewTrainHandler(trains, stations, travels),
		Stations:     handler.NewStationHandler(trains, stations),
		Travels:      handler.NewTravelHandler(trains, stations, travels),
		Payments:     handler.NewPaymentHandler(engine, payments, travels),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
