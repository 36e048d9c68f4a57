package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/table-service/internal/config"
	"github.com/iliyamo/table-service/internal/database"
	"github.com/iliyamo/table-service/internal/handler"
	"github.com/iliyamo/table-service/internal/live"
	"github.com/iliyamo/table-service/internal/middleware"
	"github.com/iliyamo/table-service/internal/queue"
	"github.com/iliyamo/table-service/internal/ratelimit"
	"github.com/iliyamo/table-service/internal/repository"
	"github.com/iliyamo/table-service/internal/router"
	"github.com/iliyamo/table-service/internal/service"
)

func main() {
	// A missing .env is fine; the real environment wins either way.
	_ = godotenv.Load()
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		e.Logger.Fatal(err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			e.Logger.Fatal(err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var admit ratelimit.Admitter = ratelimit.NewMemory()
	if cfg.AdmissionBackend == "redis" {
		if rdb == nil {
			e.Logger.Warnj(log.JSON{"action": "startup", "admission": "memory", "reason": "redis unavailable"})
		} else {
			admit = ratelimit.NewRedis(rdb, "admit")
		}
	}

	tables := repository.NewTableRepo(db)
	menu := repository.NewMenuRepo(db)
	orders := repository.NewOrderRepo(db)
	calls := repository.NewCallRepo(db)
	ratings := repository.NewRatingRepo(db)

	// Live views are nudged after every write; with Redis the nudge goes
	// through the bridge so other instances see it too.
	hub := live.NewHub()
	notifiers := service.Notifiers{}
	if rdb != nil {
		bridge := live.NewRedisBridge(rdb, cfg.LiveChannel, hub, log.New("live-bridge"))
		go func() {
			if err := bridge.Run(ctx); err != nil {
				e.Logger.Errorj(log.JSON{"action": "live.bridge", "error": err.Error()})
			}
		}()
		notifiers = append(notifiers, bridge)
	} else {
		notifiers = append(notifiers, hub)
	}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, 1024, log.New("queue"))
		go pub.Run(ctx)
		go queue.StartActivityConsumer(ctx, cfg.RabbitURL, cfg.ActivityDir, log.New("activity"))
		notifiers = append(notifiers, pub)
	}
	opts := service.Options{Notifier: notifiers}

	orderSvc := service.NewOrders(tables, menu, orders, admit, cfg.OrderRateWindow, opts)
	callSvc := service.NewCalls(tables, calls, admit, cfg.CallRateWindow, opts)
	ratingSvc := service.NewRatings(tables, calls, ratings, cfg.MinStarsRedirect, opts)
	sessionSvc := service.NewSessions(tables, calls, orders, cfg.RatingLookback, opts)
	publisher := live.NewPublisher(orders, calls, hub, log.New("live"))

	router.RegisterRoutes(e, handler.Health(db))
	router.RegisterPublic(e, handler.NewPublicHandler(sessionSvc, orderSvc, callSvc, ratingSvc),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterStaff(e, handler.NewStaffHandler(orderSvc, callSvc),
		handler.NewStreamHandler(publisher, live.Intervals{Live: cfg.LiveInterval, Metrics: cfg.MetricsInterval}), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(tables), cfg.JWTSecret)

	addr := ":" + cfg.Port
	e.Logger.Infoj(log.JSON{"action": "startup", "addr": addr, "env": cfg.Env, "admission": cfg.AdmissionBackend})
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}
