package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	fixtureprovider "github.com/bnema/nodetel/internal/adapters/hardware/fixture"
	systemprovider "github.com/bnema/nodetel/internal/adapters/hardware/system"
	chainstore "github.com/bnema/nodetel/internal/adapters/kv/chain"
	filestore "github.com/bnema/nodetel/internal/adapters/kv/file"
	sqlitestore "github.com/bnema/nodetel/internal/adapters/kv/sqlite"
	"github.com/bnema/nodetel/internal/adapters/netaddr"
	reportadapter "github.com/bnema/nodetel/internal/adapters/render/report"
	"github.com/bnema/nodetel/internal/application"
	"github.com/bnema/nodetel/internal/config"
	"github.com/bnema/nodetel/internal/domain"
	"github.com/bnema/nodetel/internal/logging"
	"github.com/bnema/nodetel/internal/ports"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// lookupDisabled as network.lookup_url turns the address lookup off; records
// then carry no address.
const lookupDisabled = "off"

type app struct {
	cfg      config.Config
	log      *logrus.Logger
	clock    ports.Clock
	store    ports.KeyValueStore
	provider ports.HardwareFactsProvider
	cache    *application.ChangeDetectionCache
	liveness *application.LivenessCounter
	rounds   *application.RoundService

	roundRenderer    func(domain.RoundResult, reportadapter.RenderOptions) (string, error)
	verdictRenderer  func(domain.Verdict, reportadapter.RenderOptions) (string, error)
	snapshotRenderer func(domain.HardwareSnapshot, reportadapter.RenderOptions) (string, error)
	cacheRenderer    func(*domain.CacheEntry, reportadapter.RenderOptions) (string, error)

	closers []func() error
}

func wireApp(opts rootOptions, logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(viper.New(), opts.configFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stdout: logOutput,
		Stderr: logOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	a := &app{
		cfg:              cfg,
		log:              logger,
		clock:            ports.SystemClock{},
		roundRenderer:    reportadapter.RenderRound,
		verdictRenderer:  reportadapter.RenderVerdict,
		snapshotRenderer: reportadapter.RenderSnapshot,
		cacheRenderer:    reportadapter.RenderCacheEntry,
		closers:          []func() error{closeLog},
	}

	store, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire kv store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	provider, err := newProvider(cfg.Hardware, a.clock)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("wire hardware provider: %w", err)
	}
	a.provider = provider

	a.cache = application.NewChangeDetectionCache(store, a.clock, logger)
	a.liveness = application.NewLivenessCounter(store, a.clock, cfg.Liveness.MaxGap, logger)
	encoder := application.NewSubmissionEncoder(newResolver(cfg.Network), cfg.Network.LookupTimeout, logger)
	a.rounds = application.NewRoundService(provider, store, a.cache, encoder, a.liveness, a.clock, application.RoundOptions{
		Sender:         cfg.Sender,
		CollectTimeout: cfg.Hardware.CollectTimeout,
	}, logger)

	logger.WithFields(logrus.Fields{
		"config":  cfg.File,
		"backend": cfg.Store.Backend,
		"store":   cfg.Store.Path,
	}).Debug("wired")

	return a, nil
}

func openStore(cfg config.StoreConfig, log logrus.FieldLogger) (ports.KeyValueStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filestore.NewStore(cfg.FileRoot()), func() error { return nil }, nil
	case config.BackendSQLite:
		store, err := sqlitestore.Open(cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.BackendChain:
		store, closeStore, err := chainstore.NewSQLiteFirstWithFileFallback(cfg.SQLitePath(), cfg.FileRoot())
		if err != nil {
			if store == nil {
				return nil, nil, err
			}
			log.WithError(err).Warn("kv store degraded")
		}
		return store, closeStore, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func newProvider(cfg config.HardwareConfig, clock ports.Clock) (ports.HardwareFactsProvider, error) {
	if cfg.SnapshotFile == "" {
		return systemprovider.NewProvider(), nil
	}

	return fixtureprovider.NewProvider(cfg.SnapshotFile, clock)
}

func newResolver(cfg config.NetworkConfig) ports.AddressResolver {
	if strings.EqualFold(cfg.LookupURL, lookupDisabled) {
		return nil
	}

	return netaddr.HTTPResolver{
		LookupURL:      cfg.LookupURL,
		HTTPClient:     http.DefaultClient,
		RequestTimeout: cfg.LookupTimeout,
	}
}

func (a *app) now() time.Time {
	if a.clock == nil {
		return time.Now()
	}
	return a.clock.Now()
}

// Close releases everything wireApp opened, in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] == nil {
			continue
		}
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}
