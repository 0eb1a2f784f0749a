package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"disclone/internal/auth"
	"disclone/internal/client"
	"disclone/internal/config"
	"disclone/internal/db"
	"disclone/internal/handlers"
	"disclone/internal/memstore"
	"disclone/internal/middleware"
	"disclone/internal/models"
	"disclone/internal/observability"
	"disclone/internal/rabbitmq"
	"disclone/internal/realtime"
	"disclone/internal/repositories"
	"disclone/internal/telemetry"
	"disclone/internal/ws"
)

type storage struct {
	profiles      repositories.ProfileRepository
	channels      repositories.ChannelRepository
	messages      repositories.MessageRepository
	reactions     repositories.ReactionRepository
	announcements repositories.AnnouncementRepository
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s %s", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, "audit", cfg.ServiceName, cfg.Environment)

	broker := realtime.NewBroker(cfg.RealtimeBuffer)
	store, closeStore, err := openStorage(ctx, cfg, broker)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	authService := auth.NewService(store.profiles, cfg.JWTSecret, cfg.TokenTTL, cfg.Admins, audit)
	cookies := middleware.CookieConfig{Name: cfg.SessionCookie, Secure: cfg.CookieSecure, MaxAge: cfg.TokenTTL}

	hub := ws.NewHub()
	newSession := func(profile models.Profile) *client.Session {
		return client.NewSession(profile, client.Deps{
			Profiles:      store.profiles,
			Channels:      store.channels,
			Messages:      store.messages,
			Reactions:     store.reactions,
			Announcements: store.announcements,
			Feed:          broker,
			Audit:         audit,
		}, client.Config{
			AnnouncementInterval: cfg.AnnouncementInterval,
			DirectMessageLimit:   cfg.DirectMessageLimit,
		})
	}

	authHandler := handlers.NewAuthHandler(authService, cookies, hub)
	channelHandler := handlers.NewChannelHandler(store.channels, audit)
	messageHandler := handlers.NewMessageHandler(store.messages, store.reactions, audit)
	profileHandler := handlers.NewProfileHandler(store.profiles, cfg.DirectMessageLimit)
	announcementHandler := handlers.NewAnnouncementHandler(store.announcements, audit, time.Now)
	sessionWS := ws.NewSessionHandler(hub, newSession, audit)

	router := gin.Default()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}

	// middlewares
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(observability.HTTPMetricsMiddleware())

	requireProfile := middleware.RequireProfile(authService, cookies)
	requireAdmin := middleware.RequireAdmin()

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/auth/signup", authHandler.SignUp)
	router.POST("/auth/login", authHandler.Login)
	router.POST("/auth/logout", authHandler.Logout)
	router.GET("/auth/me", requireProfile, authHandler.Me)

	router.GET("/channels", requireProfile, channelHandler.ListChannels)
	router.POST("/channels", requireProfile, requireAdmin, channelHandler.CreateChannel)
	router.DELETE("/channels/:id", requireProfile, requireAdmin, channelHandler.DeleteChannel)
	router.GET("/channels/:id/messages", requireProfile, messageHandler.GetChannelMessages)
	router.GET("/dms/:peer_id/messages", requireProfile, messageHandler.GetDirectMessages)
	router.GET("/profiles", requireProfile, profileHandler.ListProfiles)

	router.POST("/messages", requireProfile, messageHandler.PostMessage)
	router.POST("/messages/:id/forward", requireProfile, messageHandler.ForwardMessage)
	router.DELETE("/messages/:id", requireProfile, messageHandler.DeleteMessage)
	router.PUT("/messages/:id/reactions", requireProfile, messageHandler.React)

	router.GET("/announcements/active", requireProfile, announcementHandler.ListActive)
	router.POST("/announcements", requireProfile, requireAdmin, announcementHandler.CreateAnnouncement)

	router.GET("/ws", requireProfile, sessionWS.Handle)

	handlers.RegisterDebugRoutes(router.Group("", requireProfile), audit, cfg.DebugRoutes)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("listening on :%s storage=%s", cfg.Port, cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("tracer shutdown: %v", err)
	}
}

// openStorage returns the repositories for the configured backend and a func releasing it.
// The Postgres backend feeds the broker from LISTEN/NOTIFY; the memory backend publishes directly.
func openStorage(ctx context.Context, cfg config.Config, broker *realtime.Broker) (storage, func(), error) {
	switch cfg.Storage {
	case config.StorageMemory:
		mem := memstore.New(broker)
		return storage{
			profiles:      mem,
			channels:      mem,
			messages:      mem,
			reactions:     mem,
			announcements: mem,
		}, func() {}, nil

	case config.StoragePostgres:
		database, err := db.Connect(ctx, cfg.DatabaseDSN)
		if err != nil {
			return storage{}, nil, err
		}
		listener, err := realtime.NewPGListener(cfg.DatabaseDSN, broker)
		if err != nil {
			database.Close()
			return storage{}, nil, err
		}
		go listener.Run(ctx)

		reactions := repositories.NewReactionRepo(database)
		return storage{
				profiles:      repositories.NewProfileRepo(database),
				channels:      repositories.NewChannelRepo(database),
				messages:      repositories.NewMessageRepo(database, reactions),
				reactions:     reactions,
				announcements: repositories.NewAnnouncementRepo(database),
			}, func() {
				_ = listener.Close()
				_ = database.Close()
			}, nil

	default:
		return storage{}, nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
}
