// Command tokengen prints a signed bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mamadbah2/agrimarket/internal/config"
	"github.com/mamadbah2/agrimarket/internal/server/middleware"
	"github.com/mamadbah2/agrimarket/pkg/logger"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	userID := flag.String("user", "", "user id placed in the token")
	role := flag.String("role", "farmer", "role placed in the token (farmer or admin)")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to AUTH_TOKEN_TTL")
	flag.Parse()

	log := logger.Must(logger.New("info"))
	defer func() { _ = log.Sync() }()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL
	}

	token, err := middleware.GenerateToken(cfg.Auth.JWTSecret, *userID, *role, *ttl)
	if err != nil {
		log.Fatal("failed to sign token", zap.Error(err))
	}
	fmt.Println(token)
}
