package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/config"
	"github.com/vocadrill/vocadrill/internal/localcache"
	"github.com/vocadrill/vocadrill/internal/logger"
	"github.com/vocadrill/vocadrill/internal/remote"
	"github.com/vocadrill/vocadrill/internal/store"
)

// app bundles everything the commands need. It is assembled once in run and
// passed to the command constructors; commands only ever talk to the store's
// public surface.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	cache *localcache.Cache
	store *store.Store
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cache, err := localcache.Open(cfg.Cache.Path, log)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	// A disabled remote means the session starts on the local tier; the
	// store treats a nil client and a failing one the same way after the
	// first classified failure.
	var remoteClient store.RemoteClient
	if cfg.Remote.Enabled {
		remoteClient = remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout, log)
	}

	st := store.New(remoteClient, cache, log)
	st.RestoreCurrentUser()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, log: log, cache: cache, store: st}
	return newRootCmd(a).ExecuteContext(ctx)
}
