package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/plutus-tools/gastronomy/internal/gastronomy/chainquery"
	"github.com/plutus-tools/gastronomy/internal/gastronomy/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "gastronomy-server:", err)
		os.Exit(1)
	}

	var provider chainquery.Provider
	if cfg.ChainProvider != nil {
		provider = chainquery.NewHTTPProvider(cfg.ChainProvider.BaseURL, cfg.ChainProvider.APIKeyName, cfg.ChainProvider.APIKey)
	}

	srv := newServer(cfg, provider)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/traces", srv.createTraces)
	r.Get("/traces/{id}/summary", srv.getTraceSummary)
	r.Get("/traces/{id}/frames/{index}", srv.getFrame)
	r.Get("/traces/{id}/source", srv.getSource)

	addr := ":8089"
	if v, ok := os.LookupEnv("GASTRONOMY_SERVER_ADDR"); ok {
		addr = v
	}
	log.Printf("gastronomy-server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
