// Command tokengen issues bearer tokens for the careops API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yanqian/careops/internal/domain/auth"
	"github.com/yanqian/careops/internal/infra/config"
	"github.com/yanqian/careops/pkg/logger"
)

func main() {
	subject := flag.String("subject", "", "token subject, e.g. a service or clinician id")
	role := flag.String("role", "clinician", "role claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.HTTP.Auth.Secret == "" {
		log.Fatal("http.auth.secret is not configured")
	}

	svc := auth.NewService(auth.Config{
		Secret:   cfg.HTTP.Auth.Secret,
		Issuer:   cfg.HTTP.Auth.Issuer,
		TokenTTL: cfg.HTTP.Auth.TokenTTL,
	}, logger.New())
	token, err := svc.IssueToken(context.Background(), *subject, *role)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
}
