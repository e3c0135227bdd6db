package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/relves/zcapcore/pkg/zcap/httpapi"
	"github.com/relves/zcapcore/pkg/zcap/revocation"
)

func main() {
	levelStr := getEnv("LOG_LEVEL", "info")
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	dataPath := getEnv("DATA_PATH", "./data")
	revocations, err := revocation.Open(dataPath + "/revocations.db")
	if err != nil {
		logger.Error("failed to open revocation store", "error", err)
		os.Exit(1)
	}
	defer revocations.Close()

	handler := httpapi.NewHandler(revocations, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify/invocation", handler.HandleVerifyInvocation)
	mux.HandleFunc("POST /verify/delegation", handler.HandleVerifyDelegation)
	mux.HandleFunc("POST /revocations/{capabilityID}", handler.HandleRevoke)
	mux.HandleFunc("GET /revocations", handler.HandleListRevocations)

	port := getEnv("PORT", "8080")
	addr := ":" + port

	fmt.Println("ZCAP Verification Service Startup")
	fmt.Println("===================================")
	fmt.Printf("Data path: %s\n", dataPath)
	fmt.Println()
	fmt.Println("Verification API:")
	fmt.Printf("  POST http://localhost:%s/verify/invocation\n", port)
	fmt.Printf("  POST http://localhost:%s/verify/delegation\n", port)
	fmt.Println()
	fmt.Println("Revocation API:")
	fmt.Printf("  POST http://localhost:%s/revocations/{capabilityID}\n", port)
	fmt.Printf("  GET  http://localhost:%s/revocations\n", port)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
