package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/postboard/internal/config"
	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/server"
	"github.com/UkralStul/postboard/internal/storage"
	"github.com/UkralStul/postboard/internal/storage/inmemory"
	"github.com/UkralStul/postboard/internal/storage/postgres"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	seed := flag.Bool("seed", true, "fill in-memory storage with sample posts")
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	var store storage.Storage
	log.Info("starting server", "storage", *storageType)
	if *storageType == "postgres" {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set for postgres storage")
		}
		store, err = postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
	} else {
		store = inmemory.New()
		if *seed {
			// Заполним данными для ручной проверки
			if err := fillWithMockData(store); err != nil {
				return err
			}
		}
	}

	srv := server.New(store, log)
	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: srv.Routes()}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "url", "http://localhost:"+cfg.Port+server.BasePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		log.Info("signal caught", "sig", sig)
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func fillWithMockData(s storage.Storage) error {
	ctx := context.Background()
	drafts := []domain.Draft{
		{Author: "Amy", Content: "First post on the board."},
		{Content: "Posting without a name."},
		{Author: "Bo", Content: "Look at this view!", ImageURL: "https://picsum.photos/seed/postboard/600/300"},
	}
	for _, d := range drafts {
		if _, err := s.CreatePost(ctx, d); err != nil {
			return err
		}
	}
	slog.Info("mock data filled", "posts", len(drafts))
	return nil
}
