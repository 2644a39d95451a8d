package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

// Server holds the state of the HTTP API for one serve cycle.
type Server struct {
	app      *App
	models   *ModelCache
	sessions *SessionAPI
	apiMux   *http.ServeMux
	handler  http.Handler
}

// NewServer builds the API mux on top of an opened App.
func NewServer(app *App, actionChan chan<- string) *Server {
	models := NewModelCache(app.store, app.tokenizer, app.logger)
	s := &Server{
		app:      app,
		models:   models,
		sessions: NewSessionAPI(models, app.tokenizer, app.config.Markov.Suggestions, app.logger),
		apiMux:   http.NewServeMux(),
	}

	NewMarkovAPI(models, app.store, app.tokenizer, app.config.Markov, app.logger).RegisterRoutes(s.apiMux)
	s.sessions.RegisterRoutes(s.apiMux)
	NewServerAPI(app.config, actionChan, app.logger).RegisterRoutes(s.apiMux)
	auth := NewAuthAPI(app.store, app.logger)
	auth.RegisterRoutes(s.apiMux)

	metrics := promhttp.Handler()
	s.apiMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if requireScope(w, r, scopeStatsRead) {
			metrics.ServeHTTP(w, r)
		}
	})
	s.handler = auth.Authenticate(s.apiMux)
	return s
}

func serveCmd() *cli.Command {
	var addr string

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the model, generation and autocomplete HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address, overrides the config file",
				Destination: &addr,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			actionChan := make(chan string, 1)

			go func() {
				osSignalChan := make(chan os.Signal, 1)
				signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
				select {
				case <-osSignalChan:
				case <-ctx.Done():
				}
				actionChan <- actionShutdown
			}()

			for {
				action, err := serve(addr, actionChan)
				if err != nil {
					return err
				}
				if action != actionRestart {
					return nil
				}
			}
		},
	}
}

// serve runs one server cycle and returns the action that ended it.
func serve(addr string, actionChan chan string) (string, error) {
	app, err := openApp()
	if err != nil {
		return "", err
	}
	defer app.Close()

	if addr == "" {
		addr = app.config.Server.ApiAddr
	}
	server := NewServer(app, actionChan)
	apiHttpServer := &http.Server{Addr: addr, Handler: server.handler}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var action string
	select {
	case action = <-actionChan:
	case err = <-serveErr:
		return "", fmt.Errorf("api server failed: %w", err)
	}

	app.logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = apiHttpServer.Shutdown(ctx); err != nil {
		app.logger.Error("Api server shutdown failed", "error", err)
	}
	app.logger.Info("HTTP server stopped.")
	return action, nil
}
