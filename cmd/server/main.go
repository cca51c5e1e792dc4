package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/config"
	"github.com/iliyamo/class-booking/internal/database"
	"github.com/iliyamo/class-booking/internal/handler"
	"github.com/iliyamo/class-booking/internal/middleware"
	"github.com/iliyamo/class-booking/internal/payment"
	"github.com/iliyamo/class-booking/internal/queue"
	"github.com/iliyamo/class-booking/internal/realtime"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/router"
	"github.com/iliyamo/class-booking/internal/service"
	"github.com/iliyamo/class-booking/internal/slots"
	"github.com/iliyamo/class-booking/internal/store/memstore"
)

// backend is everything the server needs from a store. Both the MySQL
// store and the in-memory store satisfy it.
type backend interface {
	booking.Store
	slots.Store
	handler.CustomerStore
	handler.SellerStore
	handler.PointsAdjuster
}

func main() {
	_ = godotenv.Load() // .env is optional

	bcfg, err := config.LoadBookingConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg := config.Load(bcfg.Backend) // Load environment config
	pcfg := config.LoadPaymentConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db := openBackend(ctx, cfg, bcfg)
	if db != nil {
		defer db.Close()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, running with local rate limits and no cache")
	} else {
		defer rdb.Close()
	}

	var confirmer payment.Confirmer
	if pcfg.Mode == config.PaymentFake {
		confirmer = payment.NewFake()
		log.Printf("payment: using fake confirmer")
	} else {
		confirmer = payment.NewHTTPConfirmer(pcfg.ConfirmURL, pcfg.Timeout)
	}
	if rdb != nil {
		confirmer = payment.NewIdempotentConfirmer(confirmer, rdb)
	}

	hub := realtime.NewHub(store)
	publishers := service.Fanout{hub}
	if bcfg.EventsEnabled {
		publishers = append(publishers, service.NewPublisher(bcfg.RabbitURL))
		go queue.StartEventLogConsumer(ctx, bcfg.RabbitURL)
		go queue.StartReconcileConsumer(ctx, bcfg.RabbitURL)
	}

	mgr := booking.NewManager(store, confirmer, publishers)
	svc := slots.NewService(store, bcfg.Location, bcfg.MaxRangeDays)
	if bcfg.MaterializeEvery > 0 {
		go materializeLoop(ctx, svc, bcfg.MaterializeEvery, bcfg.MaterializeDays)
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	customer := handler.NewCustomerHandler(mgr, store, cfg.QRSecret)
	router.RegisterRoutes(e, pinger)
	router.RegisterPublic(e, handler.NewPublicHandler(store, svc), &handler.LiveHandler{Classes: store, Hub: hub},
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e, customer, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterReservationReads(e, customer, cfg.JWTSecret)
	router.RegisterSeller(e, handler.NewSellerHandler(mgr, svc, store, hub, bcfg.MaterializeDays), cfg.JWTSecret)
	router.RegisterAdmin(e, &handler.AdminHandler{Points: store}, cfg.JWTSecret)

	c := cors.New(cors.Options{
		AllowedOrigins:   bcfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	})

	addr := ":" + cfg.Port // Address string with port
	srv := &http.Server{Addr: addr, Handler: c.Handler(e), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("listening on %s (env=%s backend=%s)", addr, cfg.Env, bcfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openBackend returns the configured store and, for MySQL, the pool behind
// it.
func openBackend(ctx context.Context, cfg config.Config, bcfg config.BookingConfig) (backend, *sql.DB) {
	if bcfg.Backend == config.BackendMemory {
		log.Printf("store: using in-memory backend, data is lost on restart")
		return memstore.New(), nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     bcfg.DBMaxOpen,
		MaxIdle:     bcfg.DBMaxIdle,
		MaxLifetime: bcfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if bcfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	return repository.NewStore(db), db
}

// materializeLoop persists upcoming sessions of every scheduled class on
// start and then every interval.
func materializeLoop(ctx context.Context, svc *slots.Service, every time.Duration, days int) {
	run := func() { svc.MaterializeAll(ctx, time.Now(), days) }
	run()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
