// Package main is the JEEPedia terminal client: an interactive shell over the
// community, feedback, predictor and subscription features.
package main

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/client/api"
	"github.com/jeepedia/jeepedia/internal/client/prompt"
	"github.com/jeepedia/jeepedia/internal/client/session"
	"github.com/jeepedia/jeepedia/internal/config"
	"github.com/jeepedia/jeepedia/internal/db"
	"github.com/jeepedia/jeepedia/internal/logger"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/repository"
	"github.com/jeepedia/jeepedia/internal/service"
)

var (
	version   string
	buildDate string
)

const (
	expiryCheckInterval  = time.Minute
	sessionCleanInterval = time.Hour
)

func main() {
	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.ShowVersion {
		fmt.Printf("JEEPedia Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	lg := logger.New()
	defer func() { _ = lg.Log.Sync() }()
	if err := lg.InitConsole(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	log := lg.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, opts, log)
	if err != nil {
		log.Fatal("cannot open session store", zap.String("store", opts.Store), zap.Error(err))
	}
	defer closeStore()

	provider, err := session.NewProvider(ctx, store, log)
	if err != nil {
		log.Fatal("cannot load session", zap.Error(err))
	}
	provider.StartExpiryWatcher(ctx, expiryCheckInterval)

	httpClient, err := api.NewHTTPClient(opts.CAFile, opts.Timeout)
	if err != nil {
		log.Fatal("cannot build HTTP client", zap.Error(err))
	}
	client := api.New(opts.BaseURL, httpClient, provider, log)

	a := &app{
		ctx:      ctx,
		in:       prompt.New(os.Stdin, os.Stdout),
		log:      log,
		session:  provider,
		client:   client,
		auth:     service.NewAuthService(client, provider, log),
		checkout: service.NewCheckoutService(client, provider, log),
	}
	a.run()
}

// openStore builds the session store selected by -store. The returned func
// releases it.
func openStore(ctx context.Context, opts *config.ClientOptions, log *zap.Logger) (session.Store, func(), error) {
	noop := func() {}
	switch opts.Store {
	case config.StoreMemory:
		return session.NewMemoryStore(models.Session{}), noop, nil
	case config.StoreFile:
		var sealer *session.Sealer
		if opts.SessionKey != "" {
			s, err := session.NewSealer([]byte(opts.SessionKey))
			if err != nil {
				return nil, noop, err
			}
			sealer = s
		}
		return session.NewFileStore(opts.SessionFile, sealer, log), noop, nil
	case config.StoreSQLite, config.StorePostgres:
		var (
			conn *sql.DB
			err  error
		)
		if opts.Store == config.StoreSQLite {
			conn, err = db.InitSQLite(opts.StoreDSN)
		} else {
			conn, err = db.InitPostgres(opts.StoreDSN)
		}
		if err != nil {
			return nil, noop, err
		}
		db.StartExpiredSessionCleaner(ctx, conn, sessionCleanInterval, log)
		return repository.NewSQLSessionRepository(conn, opts.Profile, log), func() { _ = conn.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown store %q", opts.Store)
	}
}
