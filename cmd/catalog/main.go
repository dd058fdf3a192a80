package main

import (
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

func main() {
	service := "catalog"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8082")

	rateLimit, err := strconv.Atoi(getenv("RATE_LIMIT", "600"))
	if err != nil || rateLimit <= 0 {
		log.Fatal("RATE_LIMIT must be a positive integer", zap.String("value", os.Getenv("RATE_LIMIT")))
	}

	s := &catalog.Server{
		Catalog: catalog.New(log.Named("index")),
		Log:     log,
		Limiter: kit.NewIPRateLimiter(rateLimit, 60),
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		if len(jwtSecret) < 32 {
			log.Fatal("JWT_SECRET must be at least 32 chars")
		}
		s.Tokens = auth.NewTokenMaker(jwtSecret)
	} else {
		log.Warn("JWT_SECRET not set, mutating routes are open")
	}

	reg := prometheus.NewRegistry()
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   os.Getenv("METRICS_TOKEN"),
	})

	if err := kit.RunHTTPServer(":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
