// Command grytd runs the GRYT backend: access-key validation, API key
// intake, and the chat send endpoint.
//
// Configuration comes from the environment (or a .env file):
//
//	PORT             listen port (default 8080)
//	GRYT_ACCESS_KEYS comma-separated list of valid access keys
//	LOG_LEVEL        debug, info or error (default info)
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"gryt-terminal/internal/logging"
	"gryt-terminal/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		// Running without a .env file is fine; the environment may already
		// be populated.
		logging.Debug(".env not loaded", "error", err)
	}

	logging.InitWriter(zerolog.ConsoleWriter{Out: os.Stderr}, parseLevel(os.Getenv("LOG_LEVEL")))
	log := logging.Logger()

	keys := server.NewKeyRegistry(os.Getenv("GRYT_ACCESS_KEYS"))
	if keys.KeyCount() == 0 {
		log.Warn().Msg("no access keys configured; clients cannot authenticate (set GRYT_ACCESS_KEYS)")
	}

	handler := server.NewHandler(keys, server.EchoResponder())
	router := server.NewRouter(handler)

	addr := listenAddr(os.Getenv("PORT"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("grytd listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func listenAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
