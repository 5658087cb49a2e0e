package main

import (
	"log"

	"github.com/mihkeluutar/quiz-game/internal/cache"
	"github.com/mihkeluutar/quiz-game/internal/config"
	"github.com/mihkeluutar/quiz-game/internal/database"
	"github.com/mihkeluutar/quiz-game/internal/handlers"
	"github.com/mihkeluutar/quiz-game/internal/middleware"
	"github.com/mihkeluutar/quiz-game/internal/services"
	"github.com/mihkeluutar/quiz-game/internal/ws"

	_ "github.com/mihkeluutar/quiz-game/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Trivia Session API
// @version         1.0
// @description     API for hosted trivia sessions where participants author question blocks, answer each other's questions and guess who wrote what
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	var scores *cache.Scores
	if cfg.RedisAddr != "" {
		scores = cache.NewScores(cfg.RedisAddr)
		if err := scores.Ping(); err != nil {
			log.Printf("redis unreachable at %s, score cache disabled: %v", cfg.RedisAddr, err)
			scores = nil
		}
	}

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	identityService := services.NewIdentityService(db)
	contentService := services.NewContentService(db)
	scoringService := services.NewScoringService(db, cfg.QuestionPoints, cfg.GuessPoints, scores)
	sessionService := services.NewSessionService(db, contentService, scoringService, scores, services.SessionConfig{
		MinQuestions:         cfg.DefaultMinQuestions,
		SuggestedQuestions:   cfg.DefaultSuggestedQuestions,
		MaxQuestions:         cfg.DefaultMaxQuestions,
		EnableAuthorGuessing: true,
	})

	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService, contentService, scoringService, hub)
	playHandler := handlers.NewPlayHandler(sessionService, identityService, contentService, scoringService, hub)
	wsHandler := handlers.NewWSHandler(hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/session/:id", wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		sessions := api.Group("/sessions")
		sessions.Use(middleware.JWTAuth(authService))
		{
			sessions.GET("", sessionHandler.ListSessions)
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.POST("/:id/action", sessionHandler.PerformAction)
			sessions.POST("/:id/blocks", sessionHandler.SaveHostBlock)
			sessions.GET("/:id/grading", sessionHandler.ListUngraded)
			sessions.POST("/:id/grading", sessionHandler.SubmitGradingBatch)
			sessions.POST("/:id/grade", sessionHandler.GradeAnswer)
			sessions.GET("/:id/scores", sessionHandler.GetScores)
		}

		play := api.Group("/play")
		{
			play.POST("/join", playHandler.Join)
			play.GET("/state", playHandler.GetState)
			play.POST("/block", playHandler.SaveBlock)
			play.POST("/answer", playHandler.SubmitAnswer)
			play.POST("/guess", playHandler.SubmitGuess)
			play.GET("/scores", playHandler.GetScores)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
