package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"truthordare/config"
	"truthordare/game"
	"truthordare/handlers"
	"truthordare/logger"
	"truthordare/middleware"
	"truthordare/models"
	"truthordare/routes"
	"truthordare/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}

	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "truthordare",
		Short:         "Realtime truth or dare game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ApplyEnv(cmd.Flags()); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	config.RegisterFlags(cmd.Flags(), cfg)
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Setup(cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.UsesDefaultSecret() {
		log.Warn().Msg("using the default JWT secret, set JWT_SECRET in production")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomPlayer{}); err != nil {
		return err
	}

	redisClient, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	tokens := services.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(db, tokens)
	roomService := services.NewRoomService(db)
	snapshots := services.NewRedisSnapshotStore(redisClient, cfg.SnapshotTTL)

	hub := services.NewHub()
	coordinator := game.NewCoordinator(roomService, hub, game.CoordinatorOptions{
		Snapshots:   snapshots,
		Stats:       authService,
		ResultDelay: cfg.ResultDelay,
	})
	hub.SetCommands(coordinator)
	go hub.Run(ctx)

	authHandler := handlers.NewAuthHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomService, snapshots, cfg.PublicURL)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Debug {
		router.Use(gin.Logger())
	}
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	routes.SetupRoutes(router, authHandler, roomHandler, hub, tokens, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
