package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/inconshreveable/log15"
	"github.com/spf13/viper"

	"github.com/jask/ethsend/internal/config"
	"github.com/jask/ethsend/internal/database"
	"github.com/jask/ethsend/internal/database/repository"
	"github.com/jask/ethsend/internal/logging"
	"github.com/jask/ethsend/internal/metrics"
	"github.com/jask/ethsend/internal/service"
	"github.com/jask/ethsend/internal/transfer"
	"github.com/jask/ethsend/internal/wallet"
)

// app holds everything a command needs, wired from config.
type app struct {
	cfg        config.Config
	log        log15.Logger
	provider   *wallet.RPCProvider
	db         *sql.DB
	transfers  *repository.TransferRepo
	metrics    *metrics.Recorder
	controller *transfer.Controller

	logFile     io.Closer
	stopMetrics context.CancelFunc
}

func setup(ctx context.Context, v *viper.Viper) (*app, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}
	log, logFile, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, logFile: logFile, metrics: metrics.New()}

	if err := a.openJournal(); err != nil {
		_ = a.Close()
		return nil, err
	}

	detectCtx, cancel := context.WithTimeout(ctx, cfg.Wallet.DetectTimeout)
	defer cancel()
	opts := wallet.Options{PollInterval: cfg.Wallet.PollInterval, Log: log.New("component", "wallet")}
	a.provider, err = wallet.Detect(detectCtx, cfg.Wallet.RPCURL, opts)
	if err != nil {
		// Absent provider is a normal state; the form reports it on submit.
		log.Warn("no wallet provider", "url", cfg.Wallet.RPCURL, "err", err)
	}

	a.controller = &transfer.Controller{
		Metrics:        a.metrics,
		Log:            log.New("component", "transfer"),
		HaltOnPrecheck: cfg.Transfer.HaltOnPrecheck,
		ConfirmTimeout: cfg.Wallet.ConfirmTimeout,
	}
	if a.provider != nil {
		a.controller.Provider = a.provider
	}
	if a.transfers != nil {
		a.controller.Journal = a.transfers
		if cfg.Transfer.LookalikeCheck {
			a.controller.Guard = &service.LookalikeGuard{Transfers: a.transfers}
		}
	}

	if cfg.Metrics.Addr != "" {
		mctx, stop := context.WithCancel(ctx)
		a.stopMetrics = stop
		go func() {
			if err := a.metrics.Serve(mctx, cfg.Metrics.Addr); err != nil {
				log.Error("metrics listener", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
	}
	return a, nil
}

func (a *app) openJournal() error {
	path := a.cfg.Database.Path
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := database.OpenMigrated(path)
	if err != nil {
		return err
	}
	a.db = db
	a.transfers = repository.NewTransferRepo(db)
	return nil
}

func (a *app) walletStatus() string {
	if a.provider == nil {
		return "wallet: not connected"
	}
	return "wallet: " + a.cfg.Wallet.RPCURL
}

// Close releases the provider connection, database, metrics listener and
// log file.
func (a *app) Close() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
	}
	if a.provider != nil {
		a.provider.Close()
	}
	var err error
	if a.db != nil {
		err = a.db.Close()
	}
	if a.logFile != nil {
		err = errors.Join(err, a.logFile.Close())
	}
	return err
}
