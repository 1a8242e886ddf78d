package cli

import (
	"context"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/checklistapp/diagram/pkg/cache"
	"github.com/checklistapp/diagram/pkg/config"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	"github.com/checklistapp/diagram/pkg/observability"
	"github.com/checklistapp/diagram/pkg/observability/prom"
	"github.com/checklistapp/diagram/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr string
		demo bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference save/load host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			st, err := openStore(ctx, cfg.Store)
			if err != nil {
				return derrors.Wrap(derrors.ErrCodePersistence, err, "open %s store", cfg.Store.Backend)
			}
			defer st.Close()

			previews, err := openPreviewCache(ctx, cfg)
			if err != nil {
				c.Logger.Warn("preview cache disabled", "err", err)
				previews = cache.NewNullCache()
			}
			defer previews.Close()

			opts := []server.Option{
				server.WithLogger(c.Logger),
				server.WithCSRF(cfg.Server.CSRFCookie, cfg.Server.CSRFHeader),
				server.WithPreviewCache(previews, previewTTL),
			}
			if demo {
				opts = append(opts, server.WithDemoFallback())
			}
			if cfg.Server.Metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				prom.New(reg).Install()
				defer observability.Reset()
				opts = append(opts, server.WithMetrics(reg))
			}

			c.printInfo("Serving %s on %s", storeBackend(cfg), StyleLink.Render(addr))
			return server.New(st, opts...).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&demo, "demo", false, "serve the demo document for unsaved projects")
	return cmd
}

// previewTTL bounds how long rendered previews are kept.
const previewTTL = 24 * time.Hour

// openPreviewCache follows the store backend: Redis shares the store's
// instance, the file store gets a cache under the user cache dir, and the
// memory store a process-local cache.
func openPreviewCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
	case config.BackendMemory:
		return cache.NewMemoryCache(), nil
	case config.BackendFile:
		dir, err := cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(filepath.Join(dir, "previews"))
	default:
		return cache.NewNullCache(), nil
	}
}
