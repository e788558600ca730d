package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/fe-learning/felearn/internal/api/http"
	"github.com/fe-learning/felearn/internal/auth"
	"github.com/fe-learning/felearn/internal/catalog"
	"github.com/fe-learning/felearn/internal/config"
	"github.com/fe-learning/felearn/internal/db"
	"github.com/fe-learning/felearn/internal/explain"
	"github.com/fe-learning/felearn/internal/history"
	"github.com/fe-learning/felearn/internal/session"
	"github.com/fe-learning/felearn/internal/users"
)

func main() {
	cfg := config.FromEnv()

	// --- Catalog file ---
	bank, err := catalog.OpenBank(cfg.DataFile)
	if err != nil {
		log.Printf("quiz data: %v (starting with no data)", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		histStore history.Store
		userStore users.Store
		cache     explain.Cache
	)
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		// Degraded mode: keep serving quizzes, lose persistence.
		log.Printf("db open failed: %v (history and explanations will not persist)", err)
		histStore = history.NewInMemoryStore()
		userStore = users.NewInMemoryStore()
		cache = explain.NewMemoryCache()
	} else {
		histStore = history.NewSQLStore(dbh)
		userStore = users.NewSQLStore(dbh)
		cache = explain.NewSQLCache(dbh)
	}

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)
	sessions := session.NewManager(histStore, userStore)
	explainSvc := explain.NewService(cache,
		explain.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel))

	r := api.NewRouter(api.Deps{
		Cfg:      cfg,
		Auth:     authSvc,
		Sessions: sessions,
		Bank:     bank,
		History:  histStore,
		Explain:  explainSvc,
	})

	log.Printf("listening on %s (db=%s, data=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.DataFile)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
