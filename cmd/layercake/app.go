package main

import (
	"context"
	"fmt"

	"github.com/kataras/golog"

	"github.com/layercake/layercake/internal/build"
	"github.com/layercake/layercake/internal/config"
	"github.com/layercake/layercake/internal/dag"
	"github.com/layercake/layercake/internal/dataset"
	"github.com/layercake/layercake/internal/edits"
	"github.com/layercake/layercake/internal/eventbus"
	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/store"
	"github.com/layercake/layercake/internal/store/memory"
	"github.com/layercake/layercake/internal/store/postgres"
	"github.com/layercake/layercake/internal/store/sqlite"
	"github.com/layercake/layercake/internal/story"
)

// app bundles every service a CLI command needs, wired once per invocation
// from the loaded config — mirroring the teacher's examples/*/main.go
// pattern of constructing the graph/store/logger trio directly in main
// rather than behind a DI framework.
type app struct {
	cfg      *config.Config
	store    store.Store
	closer   func() error
	logger   log.Logger
	bus      eventbus.Publisher
	datasets *dataset.Service
	edits    *edits.Service
	stories  *story.Service
}

func newApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)

	st, closer, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	bus := newBus(cfg, logger)

	a := &app{
		cfg:      cfg,
		store:    st,
		closer:   closer,
		logger:   logger,
		bus:      bus,
		datasets: dataset.NewService(st, st, st, dataset.UnsupportedFormatParser{}, logger),
		edits:    edits.NewService(st, st, logger),
		stories:  story.NewService(st, st, st, logger),
	}
	return a, nil
}

func (a *app) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

func newLogger(cfg *config.Config) log.Logger {
	level := log.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = log.LevelDebug
	case "warn":
		level = log.LevelWarn
	case "error":
		level = log.LevelError
	}
	if cfg.Log.Format == "golog" {
		return log.NewGologLogger(golog.Default)
	}
	return log.NewDefaultLogger(level)
}

func newStore(cfg *config.Config, logger log.Logger) (store.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		s, err := postgres.New(context.Background(), postgres.Options{ConnString: cfg.Storage.PostgresDSN}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	case config.BackendSQLite:
		s, err := sqlite.New(sqlite.Options{Path: cfg.Storage.SQLitePath}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendMemory, "":
		return memory.New(logger), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newBus(cfg *config.Config, logger log.Logger) eventbus.Publisher {
	if cfg.Redis.Addr == "" {
		return eventbus.NewMemoryBus(logger)
	}
	return eventbus.NewRedisBus(eventbus.RedisBusOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	}, logger)
}

// newExecutor wires a DAG Executor. eventbus.Publisher's PublishNodeStatus
// signature is kept identical to build.StatusPublisher on purpose (see
// internal/eventbus/bus.go), so a.bus satisfies it with no adapter.
func (a *app) newExecutor() *dag.Executor {
	var replayer build.Replayer = a.edits
	return dag.NewExecutor(a.store, a.store, a.store, replayer, a.bus, a.stories, nil, a.logger)
}

// newPlanService wires update_plan_dag. a.bus already implements
// PublishPlanDelta (see internal/eventbus/bus.go), so it satisfies
// dag.PlanDeltaPublisher with no adapter.
func (a *app) newPlanService() *dag.PlanService {
	return dag.NewPlanService(a.store, a.bus, a.logger)
}
