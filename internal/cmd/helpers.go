package cmd

import (
	"fmt"

	"github.com/riptide-sh/riptide/internal/config"
	"github.com/riptide-sh/riptide/internal/filelock"
	"github.com/riptide-sh/riptide/internal/logging"
	"github.com/riptide-sh/riptide/internal/store"
)

// runtime bundles the pieces every command needs: validated config, the
// file-backed store, and the engine logger.
type runtime struct {
	cfg   *config.Config
	store *store.FileStore
	log   *logging.Logger
}

// newRuntime builds the command runtime from the loaded configuration.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var lockOpts []filelock.Option
	lockOpts = append(lockOpts, filelock.WithRetry(cfg.Lock.Attempts, cfg.Lock.Delay()))
	if cfg.Lock.ForceDirLock {
		lockOpts = append(lockOpts, filelock.WithDirLock())
	}
	st := store.NewFileStore(cfg.Paths.ResolveStateFile(), lockOpts...)

	log := logging.NopLogger()
	if cfg.Logging.Enabled {
		log, err = logging.New(cfg.Paths.RunDir, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("open engine log: %w", err)
		}
	}

	return &runtime{cfg: cfg, store: st, log: log}, nil
}

// close releases runtime resources.
func (r *runtime) close() {
	_ = r.log.Close()
}
