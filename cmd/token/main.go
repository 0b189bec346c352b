package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/servicebook/internal/config"
	"github.com/jwalitptl/servicebook/pkg/auth"
)

// token prints a bearer token accepted by the API's write routes.
func main() {
	configPath := flag.String("config", "", "path to config.yml")
	subject := flag.String("sub", "operator", "token subject")
	scopes := flag.String("scopes", "write", "comma separated scopes")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("auth.secret is empty; write routes are open and need no token")
	}

	token, err := auth.NewJWTService(cfg.Auth.Secret, cfg.Auth.Issuer).
		GenerateToken(*subject, strings.Split(*scopes, ","), *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}
	fmt.Fprintln(os.Stdout, token)
}
