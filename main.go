package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/auth"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/crypto"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/game"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/migrations"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/profile"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/scores"
	"github.com/Ankit-Ghildiyal-Github/clicker-game-multiplayer/storage"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {

	// logger setup
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stdout)

	// ENVs
	ALLOWED_ORIGINS, exists := os.LookupEnv("ALLOWED_ORIGINS")
	if !exists {
		log.Fatal().Msg("Missing allowed origins")
	}
	allowedOrigins := strings.Split(ALLOWED_ORIGINS, ",")

	POSTGRES_URL, exists := os.LookupEnv("POSTGRES_URL")
	if !exists {
		log.Fatal().Msg("Missing postgres url")
	}

	JWT_KEY, exists := os.LookupEnv("JWT_KEY")
	if !exists {
		log.Fatal().Msg("Missing jwt signing key")
	}

	// run migrations
	migrations.Migrate(POSTGRES_URL)

	// Dependencies
	pgRepo, err := storage.NewPostgresRepo(context.Background(), POSTGRES_URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	tokenAge := time.Hour * 24 * 7 // 7 days
	passwordHasher := crypto.NewArgon2idHasher(3, 1024*64, 32, 16, 1)
	tokenManager := crypto.NewJWTManager(JWT_KEY, tokenAge)

	authService := auth.NewService(pgRepo, passwordHasher, tokenManager)
	authHandler := auth.NewAuthHandler(authService, tokenAge)

	r := CreateServer(allowedOrigins)

	{
		authGroup := r.Group("/auth")
		authGroup.POST("/signup", authHandler.SignupHandler)
		authGroup.POST("/login", authHandler.LoginHandler)
		authGroup.POST("/logout", authHandler.LogoutHandler)
		authGroup.GET("/refresh", authHandler.RefreshSessionHandler)
	}

	scoresHandler := scores.NewScoresHandler(pgRepo)
	r.GET("/scores", scoresHandler.TopScoresHandler)

	profileHandler := profile.NewProfileHandler(pgRepo, pgRepo)
	{
		profileGroup := r.Group("/profile")
		profileGroup.Use(authHandler.RequireAuthMiddleware(time.Second * 2))
		profileGroup.POST("", profileHandler.SaveDetailsHandler)
		profileGroup.GET("/:email", profileHandler.GetDetailsHandler)
	}

	registry := game.NewRoomRegistry(game.NewRandomCellPicker(), game.NewTimerScheduler())
	reporter := game.NewScoreReporter(pgRepo)
	coordinator := game.NewMatchCoordinator(registry, reporter)
	gameHandler := game.NewGameHandler(coordinator, pgRepo)
	{
		gameGroup := r.Group("/game")
		gameGroup.Use(authHandler.RequireAuthMiddleware(time.Second * 2))
		gameGroup.GET("/ws", gameHandler.ConnectHandler)
	}

	go r.Run(":5000")
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	log.Info().Msg("Server started")
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, shutting down")
	pgRepo.Close()
}
