package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/libraryhub/library-server/internal/api"
	"github.com/libraryhub/library-server/internal/config"
	"github.com/libraryhub/library-server/internal/logger"
	"github.com/libraryhub/library-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	limiter *api.RateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	if h.limiter != nil {
		h.limiter.Stop()
	}
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Book:    do.MustInvoke[*service.BookService](i),
		Lending: do.MustInvoke[*service.LendingService](i),
		Admin:   do.MustInvoke[*service.AdminService](i),
		Search:  searchHandle.Index,
	}

	opts := api.Options{
		CORSOrigins:   cfg.Server.CORSOrigins,
		StorageDriver: cfg.Storage.Driver,
	}
	if cfg.RateLimit.Enabled {
		opts.LendingLimiter = api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Interval, cfg.RateLimit.Burst)
		log.Info("Lending rate limit enabled",
			"requests", cfg.RateLimit.Requests,
			"interval", cfg.RateLimit.Interval,
			"burst", cfg.RateLimit.Burst,
		)
	}

	handler := api.NewServer(storeHandle.Store, services, sseHandle.Manager, opts, log.Component("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, limiter: opts.LendingLimiter}, nil
}
