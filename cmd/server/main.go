package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"storefront-backend/internal/api"
	"storefront-backend/internal/api/handlers"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/cache"
	"storefront-backend/internal/database"
	"storefront-backend/internal/notify"
	"storefront-backend/internal/repository"

	log "github.com/sirupsen/logrus"
)

const migrationsDir = "./internal/database/migrations"

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	pool, err := database.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect database")
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, pool, migrationsDir); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		log.WithError(err).Fatal("failed to init token manager")
	}

	productRepo := repository.NewProductRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)

	var (
		products    repository.ProductRepository = productRepo
		invalidator *cache.CachedProductRepository
	)

	rdb, err := cache.ConnectRedis(cfg)
	if err != nil {
		// The catalog works without the cache, just slower.
		log.WithError(err).Warn("redis unavailable, serving catalog without cache")
	} else {
		defer rdb.Close()
		cached := cache.NewCachedProductRepository(productRepo, rdb)
		products = cached
		invalidator = cached
	}

	mailer := notify.NewMailer(notify.Config{
		BaseURL:          cfg.EmailJSBaseURL,
		ServiceID:        cfg.EmailJSServiceID,
		PublicKey:        cfg.EmailJSPublicKey,
		PrivateKey:       cfg.EmailJSPrivateKey,
		TemplateCustomer: cfg.EmailJSTemplateCustomer,
		TemplateAdmin:    cfg.EmailJSTemplateAdmin,
		AdminEmail:       cfg.AdminEmail,
	})
	dispatcher := notify.NewDispatcher(mailer)

	router := api.NewRouter(api.Deps{
		Auth:     handlers.NewAuthHandler(userRepo, tokens),
		Products: handlers.NewProductHandler(products),
		Orders:   newOrderHandler(orderRepo, userRepo, dispatcher, invalidator),
		Tokens:   tokens,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("storefront backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}

	// Let in-flight order notifications finish before the process exits.
	dispatcher.Wait()
}

// newOrderHandler keeps the nil-interface wiring in one place: a nil
// *CachedProductRepository must stay a nil interface value inside the
// handler.
func newOrderHandler(orders repository.OrderRepository, users repository.UserRepository, dispatcher *notify.Dispatcher, invalidator *cache.CachedProductRepository) *handlers.OrderHandler {
	if invalidator == nil {
		return handlers.NewOrderHandler(orders, users, dispatcher, nil)
	}
	return handlers.NewOrderHandler(orders, users, dispatcher, invalidator)
}
