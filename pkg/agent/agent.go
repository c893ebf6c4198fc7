// Package agent wires the bridge together: configuration, input capture,
// the mapping store and the dispatch engine driving the output sinks.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger"
	"github.com/hapticbridge/hapticbridge/internal/configsvc"
	"github.com/hapticbridge/hapticbridge/internal/dispatchsvc"
	"github.com/hapticbridge/hapticbridge/internal/inputsvc"
	"github.com/hapticbridge/hapticbridge/internal/inputsvc/linux"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"github.com/hapticbridge/hapticbridge/internal/sinkio"
	"github.com/hapticbridge/hapticbridge/internal/sinkio/pad"
	"github.com/hapticbridge/hapticbridge/internal/sinkio/vest"
	"github.com/hapticbridge/hapticbridge/pkg/registry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// snapshotKey is the badger key holding the last good mapping snapshot.
const snapshotKey = "mapstore/snapshot"

type Agent struct {
	config Config
	log    *zap.Logger

	db          *badger.DB
	configSvc   *configsvc.Service
	store       *mapstore.Store
	inputSvc    *inputsvc.Service
	dispatchSvc *dispatchsvc.Service
	sinks       dispatchsvc.Sinks
}

// NewRegistries builds the sink registries with all built-in sink types.
func NewRegistries(log *zap.Logger) (*registry.Registry[sinkio.VestSink, *zap.Logger], *registry.Registry[sinkio.PadSink, *zap.Logger]) {
	vests := registry.NewRegistry[sinkio.VestSink, *zap.Logger](log)
	vests.Register("player", vest.NewFromConfig)
	vests.Register("null", sinkio.NewNullVest)

	pads := registry.NewRegistry[sinkio.PadSink, *zap.Logger](log)
	pads.Register("uinput", pad.NewFromConfig)
	pads.Register("null", sinkio.NewNullPad)
	return vests, pads
}

func NewAgent(config Config) (*Agent, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}

	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	configSvc := configsvc.New(logger.Named("config"))
	store := mapstore.NewStore()

	deviceConfig, err := configsvc.ReadFile(config.DeviceConfig, linux.Config{})
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("No device config, autodetecting input devices",
				zap.String("path", config.DeviceConfig))
		} else {
			logger.Warn("Device config not readable, autodetecting input devices",
				zap.String("path", config.DeviceConfig),
				zap.Error(err),
			)
		}
		deviceConfig = linux.Config{}
	}
	linuxInput := linux.NewBackend(logger.Named("input.linux"), deviceConfig)
	inputSvc := inputsvc.New(logger.Named("input"), inputsvc.WithBackend("linux", linuxInput))

	vests, pads := NewRegistries(logger)
	sinks, err := buildSinks(config, vests, pads)
	if err != nil {
		db.Close()
		return nil, err
	}

	dispatchSvc := dispatchsvc.New(logger.Named("dispatch"), store, inputSvc, sinks)
	return &Agent{
		config:      config,
		log:         logger,
		db:          db,
		configSvc:   configSvc,
		store:       store,
		inputSvc:    inputSvc,
		dispatchSvc: dispatchSvc,
		sinks:       sinks,
	}, nil
}

func buildSinks(config Config, vests *registry.Registry[sinkio.VestSink, *zap.Logger], pads *registry.Registry[sinkio.PadSink, *zap.Logger]) (dispatchsvc.Sinks, error) {
	vestType := config.Vest.Type
	if vestType == "" {
		vestType = "null"
	}
	vestSink, err := vests.New(vestType, config.Vest.Config)
	if err != nil {
		return dispatchsvc.Sinks{}, fmt.Errorf("failed to create vest sink: %w", err)
	}
	padType := config.Pad.Type
	if padType == "" {
		padType = "null"
	}
	padSink, err := pads.New(padType, config.Pad.Config)
	if err != nil {
		sinkio.Close(vestSink)
		return dispatchsvc.Sinks{}, fmt.Errorf("failed to create pad sink: %w", err)
	}
	return dispatchsvc.Sinks{Vest: vestSink, Pad: padSink}, nil
}

func (a *Agent) Close() error {
	sinkio.Close(a.sinks.Vest)
	sinkio.Close(a.sinks.Pad)
	return a.db.Close()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}

// Run starts the agent and blocks until the context is cancelled. Startup
// fails on an invalid mapping configuration; if the configuration becomes
// invalid after startup, the agent keeps running with the last good state.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return a.inputSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return a.dispatchSvc.Start(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return nil
		case <-a.configSvc.Ready():
		}
		return a.loadMappings()
	})

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}
	return nil
}

// Store exposes the mapping store for the CLI and editor surfaces.
func (a *Agent) Store() *mapstore.Store {
	return a.store
}

// Dispatch exposes pause/resume control.
func (a *Agent) Dispatch() *dispatchsvc.Service {
	return a.dispatchSvc
}

// loadMappings reads the mapping file, registers it for live reload and
// applies it. When the file does not exist the last good snapshot from the
// badger cache is used instead.
func (a *Agent) loadMappings() error {
	file, found, err := configsvc.Register(a.configSvc, a.config.MappingConfig, mapstore.MappingFile{}, func(file mapstore.MappingFile, err error) {
		if err != nil {
			a.log.Error("Failed to reload mapping config", zap.Error(err))
			return
		}
		if err := a.applyMappings(file); err != nil {
			a.log.Error("Rejected mapping config, keeping last good state", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register mapping config: %w", err)
	}
	if !found {
		snapshot, ok, err := a.loadSnapshot()
		if err != nil {
			return err
		}
		if !ok {
			a.log.Warn("No mapping config found, starting with empty mappings",
				zap.String("path", a.config.MappingConfig))
			return nil
		}
		if err := a.store.ImportState(snapshot); err != nil {
			return fmt.Errorf("failed to import cached snapshot: %w", err)
		}
		a.log.Info("Loaded mappings from snapshot cache",
			zap.Int("presets", len(snapshot.Presets)),
			zap.Int("bindings", len(snapshot.Bindings)),
		)
		return nil
	}
	if err := a.applyMappings(file); err != nil {
		return fmt.Errorf("invalid mapping config %s: %w", a.config.MappingConfig, err)
	}
	return nil
}

func (a *Agent) applyMappings(file mapstore.MappingFile) error {
	snapshot, err := mapstore.LoadMappingFile(file)
	if err != nil {
		return err
	}
	if err := a.store.ImportState(snapshot); err != nil {
		return err
	}
	if err := a.saveSnapshot(snapshot); err != nil {
		a.log.Warn("Failed to cache mapping snapshot", zap.Error(err))
	}
	a.log.Info("Mappings loaded",
		zap.Int("presets", len(snapshot.Presets)),
		zap.Int("bindings", len(snapshot.Bindings)),
	)
	return nil
}

func (a *Agent) saveSnapshot(snapshot mapstore.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), b)
	})
}

func (a *Agent) loadSnapshot() (mapstore.Snapshot, bool, error) {
	var snapshot mapstore.Snapshot
	found := false
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snapshot)
		})
	})
	if err != nil {
		return mapstore.Snapshot{}, false, fmt.Errorf("failed to load snapshot cache: %w", err)
	}
	return snapshot, found, nil
}
