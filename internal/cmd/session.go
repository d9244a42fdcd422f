package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meredith/compass/internal/config"
	"github.com/meredith/compass/internal/filelock"
	"github.com/meredith/compass/internal/hub"
	"github.com/meredith/compass/internal/logger"
	"github.com/meredith/compass/internal/products"
	"github.com/meredith/compass/internal/registry"
	"github.com/meredith/compass/internal/store"
)

// session bundles the pieces every user-facing command needs: config,
// logger, registry, the record store, the contract hub and the
// cross-process lock guarding this user's record.
type session struct {
	cfg    config.Config
	log    *logger.ConsoleLogger
	reg    *registry.Registry
	store  *store.Store
	hub    *hub.Hub
	lock   *filelock.SessionLock
	userID string
}

// loadConfig resolves the effective configuration, honoring an
// explicit --config path over the compass home discovery.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromHome()
}

// openSession sets up the store and hub for one user and takes the
// session lock. Callers must call close when done.
func openSession(cmd *cobra.Command, userID string) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := filelock.NewSessionLock(cfg.DataDir, userID)
	acquired, err := lock.TryAcquire()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another compass session is already working on user %s (lock %s)", userID, lock.Path())
	}

	st, err := store.NewStore(cfg.DBPath(), log)
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("open record store: %w", err)
	}

	h := hub.New(userID, st, products.Catalog(), log)
	if err := h.Initialize(); err != nil {
		st.Close()
		lock.Release()
		return nil, fmt.Errorf("restore user record: %w", err)
	}

	return &session{
		cfg:    cfg,
		log:    log,
		reg:    registry.New(cfg.LenientFlags),
		store:  st,
		hub:    h,
		lock:   lock,
		userID: userID,
	}, nil
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.lock != nil {
		s.lock.Release()
	}
}

// addSessionFlags registers the flags shared by record-touching commands.
func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: <compass home>/config.yaml)")
	cmd.Flags().String("user", "", "User id to operate on")
}

// requireUser reads the --user flag, failing when it is absent.
func requireUser(cmd *cobra.Command) (string, error) {
	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		return "", fmt.Errorf("--user is required")
	}
	return userID, nil
}
