package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/smartpark/internal/config"
	"github.com/iliyamo/smartpark/internal/database"
	"github.com/iliyamo/smartpark/internal/handler"
	"github.com/iliyamo/smartpark/internal/ingest"
	"github.com/iliyamo/smartpark/internal/middleware"
	"github.com/iliyamo/smartpark/internal/payment"
	"github.com/iliyamo/smartpark/internal/queue"
	"github.com/iliyamo/smartpark/internal/realtime"
	"github.com/iliyamo/smartpark/internal/receipt"
	"github.com/iliyamo/smartpark/internal/repository"
	"github.com/iliyamo/smartpark/internal/router"
	"github.com/iliyamo/smartpark/internal/service"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.Port = port
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides APP_PORT)")
	return cmd
}

func serve(cfg config.Config) error {
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, config.LoadDatabaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	plazas, err := config.LoadPlazas(cfg.PlazasFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub := realtime.NewHub(logger, realtime.NewMetrics(reg), config.LoadRealtimeConfig())

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	archive, err := config.NewArchive(ctx, config.LoadArchiveConfig())
	if err != nil {
		return err
	}
	var mailer receipt.Mailer = receipt.LogMailer{Logger: logger.Named("mail")}
	if mc := config.LoadMailConfig(); mc.Addr != "" {
		mailer = receipt.NewSMTPMailer(mc.Addr, mc.Username, mc.Password, mc.From)
	}
	pc := config.LoadPaymentConfig()
	charger := payment.NewStripeCharger(pc.StripeSecretKey, logger)
	if _, off := charger.(payment.Unconfigured); off {
		logger.Warn("STRIPE_SECRET_KEY not set, payments are disabled")
	}

	qc := config.LoadQueueConfig()
	receipts := repository.NewReceiptRepo(db)
	payments := service.NewPaymentService(charger, receipts, service.NewPublisher(qc.URL, qc.Queue, logger), pc.Pricing, logger)
	receiptSvc := service.NewReceiptService(receipts, archive, mailer, pc.Pricing, logger)
	contacts := service.NewContactService(repository.NewContactRepo(db), logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger.Named("http")))

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)
	router.RegisterRoutes(e, db, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.RegisterRealtime(e, router.RealtimeRoutes{
		Realtime:  handler.NewRealtimeHandler(hub, cfg.JWTSecret, config.AllowedOrigins(), logger),
		Occupancy: handler.NewOccupancyHandler(hub),
		Plazas:    &handler.PlazaHandler{Plazas: plazas, Hub: hub},
		Guard: &handler.GuardHandler{
			PasscodeHash: cfg.GuardPasscodeHash,
			JWTSecret:    cfg.JWTSecret,
			AccessTTLMin: cfg.AccessTTLMin,
			Logger:       logger,
		},
		JWTSecret:       cfg.JWTSecret,
		LegacyOccupancy: cfg.LegacyOccupancy,
		RateLimit:       limit,
	})
	router.RegisterAPI(e, router.APIRoutes{
		Payments:  &handler.PaymentHandler{Payments: payments},
		Receipts:  &handler.ReceiptHandler{Receipts: receiptSvc},
		Contact:   &handler.ContactHandler{Contacts: contacts},
		RateLimit: limit,
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	})
	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET not set, guard and sensor endpoints are open")
	}

	var wg sync.WaitGroup
	if mc := config.LoadMQTTConfig(); mc.Broker != "" {
		sub := ingest.NewSubscriber(mc, hub, logger)
		defer sub.Stop()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("occupancy feed unavailable", zap.Error(err))
			}
		}()
	}
	if qc.Consume {
		consumer := queue.NewConsumer(qc.URL, qc.Queue, qc.LogPath, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("reservation consumer stopped", zap.Error(err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ":"+cfg.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout())
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	hub.Close()
	wg.Wait()
	return nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				logger.Warn("request", fields...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
