package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/webcraft/account-gateway/identity"
	"github.com/webcraft/account-gateway/internal/config"
	"github.com/webcraft/account-gateway/internal/metrics"
	"github.com/webcraft/account-gateway/ledger"
	"github.com/webcraft/account-gateway/mailer"
	"github.com/webcraft/account-gateway/profiles"
	"github.com/webcraft/account-gateway/server"
	"github.com/webcraft/account-gateway/session"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if c.GetEnv() == "DEV" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	store, err := ledger.NewBoltStoreFromFile(filepath.Join(c.GetDataFolder(), "session.db"), nil)
	if err != nil {
		return fmt.Errorf("ledger.NewBoltStoreFromFile: %w", err)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	provider := identity.NewClient(c)
	profileRepo := profiles.NewClient(c)

	controller, err := session.NewController(provider, profileRepo, store,
		session.WithLogger(logger),
		session.WithMetrics(collector),
	)
	if err != nil {
		return fmt.Errorf("session.NewController: %w", err)
	}
	defer controller.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	controller.Start(ctx)

	srv, err := server.New(c, server.Deps{
		Provider:   provider,
		Profiles:   profileRepo,
		Ledger:     store,
		Mailer:     mailer.New(c, mailer.WithLogger(logger)),
		Controller: controller,
		Metrics:    collector,
		Registry:   registry,
	}, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
