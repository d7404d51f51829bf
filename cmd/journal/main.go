package main

import (
	"context"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/gophjournal/internal/buildinfo"
	"github.com/dmitrijs2005/gophjournal/internal/client/cli"
	"github.com/dmitrijs2005/gophjournal/internal/client/config"
	"github.com/dmitrijs2005/gophjournal/internal/client/services"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
	"github.com/dmitrijs2005/gophjournal/internal/client/storage"
	"github.com/dmitrijs2005/gophjournal/internal/filex"
	"github.com/dmitrijs2005/gophjournal/internal/logging"
)

func main() {
	// Ctrl-C wipes every enclave before the process exits.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	buildinfo.PrintBuildData(os.Stdout)

	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		memguard.SafeExit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	if err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return err
	}
	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	notifier := cli.NewNotifier(os.Stdout)
	sessions, err := session.NewManager(
		session.WithDuration(cfg.SessionDuration),
		session.WithWarningThreshold(cfg.WarningThreshold),
		session.WithLogger(logger),
		session.OnWarning(notifier.Warning),
		session.OnExpire(notifier.Expired),
	)
	if err != nil {
		return err
	}

	app := cli.NewApp(cli.Deps{
		Auth:     services.NewAuthService(db, sessions, cfg.KDFParams(), logger),
		Entries:  services.NewEntryService(db, sessions, logger),
		Bundles:  services.NewBundleService(db, sessions, logger),
		Session:  sessions,
		In:       os.Stdin,
		Out:      os.Stdout,
		Notifier: notifier,
		Logger:   logger,
	})

	logger.Info(ctx, "journal opened", "database", cfg.DatabasePath)
	app.Run(ctx)
	return nil
}
