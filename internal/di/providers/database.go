package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/libraryhub/library-server/internal/config"
	"github.com/libraryhub/library-server/internal/logger"
	"github.com/libraryhub/library-server/internal/sse"
	"github.com/libraryhub/library-server/internal/store"
	"github.com/libraryhub/library-server/internal/store/driver"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured persister, loads its contents into the
// in-memory store and installs the starter catalog on a fresh store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	persister, err := driver.Open(cfg.Storage.Driver, cfg.Storage.Path, log.Component("storage"), driver.Options{})
	if err != nil {
		return nil, err
	}

	st := store.New(persister, log.Component("store"), sseHandle.Manager)

	ctx := context.Background()
	if err := st.Load(ctx); err != nil {
		_ = persister.Close()
		return nil, err
	}

	if cfg.Storage.Seed {
		if _, err := st.Seed(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	log.Info("Store initialized",
		"driver", cfg.Storage.Driver,
		"path", cfg.Storage.Path,
		"books", st.CountBooks(),
	)

	return &StoreHandle{Store: st}, nil
}
