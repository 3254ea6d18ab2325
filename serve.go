package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/orderbot-backend/database"
	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/dedup"
	"github.com/Ananth-NQI/orderbot-backend/internal/events"
	"github.com/Ananth-NQI/orderbot-backend/internal/jobs"
	"github.com/Ananth-NQI/orderbot-backend/internal/metrics"
	"github.com/Ananth-NQI/orderbot-backend/internal/routes"
	"github.com/Ananth-NQI/orderbot-backend/internal/services"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// server is the fully wired application
type server struct {
	cfg       *config.Config
	app       *fiber.App
	engine    *services.Engine
	scheduler *jobs.Scheduler
	publisher events.Publisher
	closers   []func() error
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv, err := newServer(context.Background(), cfg)
	if err != nil {
		return err
	}
	srv.scheduler.Start()

	log.Println("========================================")
	log.Printf("🚀 OrderBot %s starting on port %s", Version, cfg.Port)
	log.Printf("🍽️  Restaurant: %s (%s)", cfg.Restaurant.Name, cfg.Restaurant.TimeZone)
	log.Printf("📊 Storage: %s", storageType(cfg))
	log.Printf("🌍 Environment: %s", cfg.Environment)
	log.Printf("📱 WhatsApp: %s", whatsAppStatus(cfg))
	log.Printf("👤 Admin phone configured: %v", cfg.AdminPhone != "")
	log.Println("========================================")

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	return srv.serve(ln, c)
}

// serve blocks until a signal arrives on stop and the whole shutdown,
// including the event flush, has finished.
func (s *server) serve(ln net.Listener, stop <-chan os.Signal) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop
		log.Println("\n🛑 Gracefully shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.shutdown(ctx)
	}()

	if err := s.app.Listener(ln); err != nil {
		return err
	}
	<-done
	return nil
}

func newServer(ctx context.Context, cfg *config.Config) (*server, error) {
	srv := &server{cfg: cfg}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	var messenger services.Messenger = services.LogMessenger{}
	if cfg.Twilio.Configured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio)
		if err != nil {
			return nil, err
		}
		messenger = twilioService
		log.Println("✅ Twilio service initialized")
	} else {
		log.Println("⚠️  Twilio credentials not found - replies are only logged")
	}

	srv.publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 0)
		kp.Start()
		srv.publisher = kp
		log.Printf("✅ Publishing order events to %s", cfg.KafkaTopic)
	}

	deduper := newDeduper(ctx, cfg, srv)

	sessions := services.NewSessionManager(cfg.SessionTTL)
	srv.engine, err = services.NewEngine(services.EngineConfig{
		Store:      store,
		Sessions:   sessions,
		Messenger:  messenger,
		Publisher:  srv.publisher,
		Metrics:    m,
		Restaurant: cfg.Restaurant,
		AdminPhone: cfg.AdminPhone,
	})
	if err != nil {
		return nil, err
	}

	srv.scheduler, err = jobs.NewScheduler(srv.engine, m, cfg.SummaryCron)
	if err != nil {
		return nil, err
	}

	srv.app = routes.NewApp("OrderBot Backend "+Version, m)
	routes.SetupRoutes(srv.app, routes.Deps{
		Config:  cfg,
		Version: Version,
		Store:   store,
		Engine:  srv.engine,
		Deduper: deduper,
		Metrics: m,
	})

	log.Println("✅ All services initialized")
	return srv, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store := storage.NewMemoryStore()
		if _, err := seedIfEmpty(ctx, store, cfg.Restaurant.Menu); err != nil {
			return nil, err
		}
		return store, nil
	}

	log.Printf("📦 Connecting to %s database...", cfg.Database.Driver)
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✅ Database migrations completed!")
	return storage.NewDatabaseStore(db), nil
}

// newDeduper prefers redis so retries are dropped across instances
func newDeduper(ctx context.Context, cfg *config.Config, srv *server) dedup.Deduper {
	if cfg.RedisAddr == "" {
		return dedup.NewMemoryDeduper(dedup.TTLDedup)
	}
	rdb := dedup.NewRedisClient(cfg.RedisAddr)
	rd := dedup.NewRedisDeduper(rdb, "whatsapp")

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rd.Ping(pingCtx); err != nil {
		log.Printf("⚠️  Redis at %s unreachable, deduplicating in memory: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		return dedup.NewMemoryDeduper(dedup.TTLDedup)
	}
	srv.closers = append(srv.closers, rdb.Close)
	log.Printf("✅ Webhook dedup backed by redis at %s", cfg.RedisAddr)
	return rd
}

func (s *server) shutdown(ctx context.Context) {
	log.Println("⏹️  Stopping scheduled jobs...")
	s.scheduler.Stop(ctx)

	log.Println("⏹️  Shutting down server...")
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		log.Printf("❌ Server shutdown: %v", err)
	}
	if err := s.publisher.Close(); err != nil {
		log.Printf("❌ Closing event publisher: %v", err)
	}
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("❌ %v", err)
		}
	}
}

func storageType(cfg *config.Config) string {
	if cfg.UseMemoryStore {
		return "In-Memory (Testing)"
	}
	return fmt.Sprintf("%s database", cfg.Database.Driver)
}

func whatsAppStatus(cfg *config.Config) string {
	if !cfg.Twilio.Configured() {
		return "Not configured"
	}
	return "Configured (" + cfg.Twilio.WhatsAppFrom + ")"
}
