package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/fathomsurvey/fathom/internal/api"
	"github.com/fathomsurvey/fathom/internal/common"
	"github.com/fathomsurvey/fathom/internal/engine"
	"github.com/fathomsurvey/fathom/internal/llm"
	"github.com/fathomsurvey/fathom/internal/store"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("fathom: .env file not loaded", "error", err)
	} else {
		logger.Info("fathom: environment loaded from .env")
	}

	addrDefault := ":8085"
	if env := strings.TrimSpace(os.Getenv("FATHOM_ADDR")); env != "" {
		addrDefault = env
	}
	addr := flag.String("addr", addrDefault, "listen address")
	dbPath := flag.String("db", defaultDBPath(), "path to the SQLite database")
	flag.Parse()

	logger.Info("fathom: startup initiated", "addr", *addr, "db", *dbPath)

	cfg := store.LoadConfig()
	if trimmed := strings.TrimSpace(*dbPath); trimmed != "" {
		cfg.Path = trimmed
	}
	st, err := store.OpenWithConfig(cfg)
	if err != nil {
		logger.Error("fathom: store open failed", "path", cfg.Path, "error", err)
		fmt.Println("store error:", err)
		os.Exit(1)
	}
	defer st.Close()

	provider := llm.NewProvider()
	logger.Info("fathom: llm provider ready", "provider", provider.Name())

	eng := engine.New(st, provider)
	defer eng.Wait()

	server, err := api.NewServer(st, eng)
	if err != nil {
		logger.Error("fathom: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("fathom: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("fathom: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDBPath() string {
	if env := strings.TrimSpace(os.Getenv("FATHOM_DB_PATH")); env != "" {
		return env
	}
	return filepath.Join("data", "fathom.db")
}
