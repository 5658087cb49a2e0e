package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string
	RedisAddr  string

	// Score weights are configuration, not game logic.
	QuestionPoints int
	GuessPoints    int

	// Default per-author content limits applied when session creation omits them.
	DefaultMinQuestions       int
	DefaultSuggestedQuestions int
	DefaultMaxQuestions       int
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "quizgame"),
		JWTSecret:  getEnv("JWT_SECRET", "super-secret-key-change-me"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		RedisAddr:  getEnv("REDIS_ADDR", ""),

		QuestionPoints: getEnvInt("QUESTION_POINTS", 1),
		GuessPoints:    getEnvInt("GUESS_POINTS", 1),

		DefaultMinQuestions:       getEnvInt("DEFAULT_MIN_QUESTIONS", 1),
		DefaultSuggestedQuestions: getEnvInt("DEFAULT_SUGGESTED_QUESTIONS", 3),
		DefaultMaxQuestions:       getEnvInt("DEFAULT_MAX_QUESTIONS", 10),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
