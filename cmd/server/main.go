package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rajuswesust/GetMyShow/internal/clock"
	"github.com/rajuswesust/GetMyShow/internal/config"
	"github.com/rajuswesust/GetMyShow/internal/database"
	"github.com/rajuswesust/GetMyShow/internal/handler"
	"github.com/rajuswesust/GetMyShow/internal/queue"
	"github.com/rajuswesust/GetMyShow/internal/reaper"
	"github.com/rajuswesust/GetMyShow/internal/repository"
	"github.com/rajuswesust/GetMyShow/internal/router"
	"github.com/rajuswesust/GetMyShow/internal/service"
)

func main() {
	// .env is optional; real environments inject variables directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	// Redis is optional: without it the seat map is served from MySQL and
	// the rate limiter fails open.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	seatRepo := repository.NewSeatInventoryRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	showRepo := repository.NewShowRepo(db)

	clk := clock.NewSystem()
	seatMap := service.NewSeatMapService(seatRepo, rdb, cfg.SeatMapCacheTTL)
	publisher := queue.NewPublisher()

	reservations := service.NewReservationService(seatRepo, bookingRepo, showRepo, publisher, seatMap, clk, service.Config{
		LockTTL:            time.Duration(cfg.BookingExpiryMin) * time.Minute,
		MaxSeatsPerUser:    cfg.MaxSeatsPerUser,
		MaxConflictRetries: cfg.ConflictRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background sweep that returns expired holds to the pool.
	sweeper := reaper.New(seatRepo, bookingRepo, reservations, clk, cfg.ReaperInterval, cfg.ReaperBatchSize)
	go sweeper.Start(ctx)

	// Consumer that records confirmed bookings from the queue.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	bookingHandler := handler.NewBookingHandler(reservations)
	showHandler := handler.NewShowHandler(showRepo, seatRepo, seatMap)
	router.RegisterRoutes(e, bookingHandler, showHandler, cfg.JWTSecret, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil {
			log.Printf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
