package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/42futures/firm/pkg/config"
	"github.com/42futures/firm/pkg/graph"
	"github.com/42futures/firm/pkg/observability"
	"github.com/42futures/firm/pkg/query"
	"github.com/42futures/firm/pkg/schema"
	"github.com/42futures/firm/pkg/workspace"
)

// newServeCommand wires this engine's ambient stack into a long-running
// process: FIRM_*-configured workspace loading, the health/metrics HTTP
// server, and the optional watcher/scheduler rebuild triggers — the
// pieces firmctl's other subcommands don't need, since they each do one
// load-build-print and exit.
func newServeCommand() *Command {
	return &Command{
		Name:        "serve",
		Description: "Build the graph and serve it, rebuilding on file changes or a cron schedule (configured via FIRM_* env vars)",
		Flags:       pflag.NewFlagSet("serve", pflag.ExitOnError),
		Run:         runServe,
	}
}

// server holds the currently-built graph and the long-running
// infrastructure that can trigger a rebuild of it.
type server struct {
	mu      sync.RWMutex
	current *graph.Graph

	dir             string
	cache           *query.ResultCache
	cacheStore      graph.CacheStore // nil disables snapshot writes on rebuild
	sqliteIndexPath string           // empty disables the sqlite secondary index
	log             *logrus.Entry
	metrics         *observability.Metrics
}

func runServe(args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)
	workspace.SetLogger(log)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cache, err := query.NewResultCache(query.CacheConfig{
		L1Size:    cfg.QueryCache.L1Size,
		TTL:       cfg.QueryCache.TTL,
		RedisAddr: cfg.QueryCache.RedisAddr,
		KeyPrefix: cfg.QueryCache.KeyPrefix,
	})
	if err != nil {
		return fmt.Errorf("building query result cache: %w", err)
	}
	cache.SetLogger(log)

	var cacheStore graph.CacheStore
	if cfg.Workspace.CacheBackend == "s3" || cfg.Workspace.CacheDir != "" {
		cacheStore, err = openCacheStore(context.Background(), cfg.Workspace.CacheBackend, cfg.Workspace.CacheDir, graph.S3Config{
			Region:   cfg.Workspace.S3.Region,
			Bucket:   cfg.Workspace.S3.Bucket,
			Prefix:   cfg.Workspace.S3.Prefix,
			Endpoint: cfg.Workspace.S3.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("opening graph cache backend: %w", err)
		}
	}

	srv := &server{
		dir:             cfg.Workspace.Root,
		cache:           cache,
		cacheStore:      cacheStore,
		sqliteIndexPath: cfg.Workspace.SQLiteIndexPath,
		log:             log,
		metrics:         metrics,
	}
	if err := srv.rebuild(); err != nil {
		return fmt.Errorf("initial graph build: %w", err)
	}

	var watcher *workspace.Watcher
	if cfg.Workspace.WatchEnabled {
		watcher, err = workspace.NewWatcher(cfg.Workspace.Root, log, func(path string) {
			if err := srv.rebuild(); err != nil {
				log.WithError(err).Warn("rebuild triggered by file watch failed")
			}
		})
		if err != nil {
			return fmt.Errorf("starting workspace watcher: %w", err)
		}
		go watcher.Run()
		defer watcher.Stop()
	}

	var scheduler *workspace.Scheduler
	if cfg.Workspace.RebuildSchedule != "" {
		scheduler = workspace.NewScheduler(log)
		if err := scheduler.AddRebuild(cfg.Workspace.RebuildSchedule, func() {
			if err := srv.rebuild(); err != nil {
				log.WithError(err).Warn("scheduled rebuild failed")
			}
		}); err != nil {
			return fmt.Errorf("registering rebuild schedule %q: %w", cfg.Workspace.RebuildSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	var httpServer *http.Server
	if cfg.Observability.MetricsAddr != "" {
		checker := observability.NewHealthChecker(nil, cache.RedisClient())
		router := mux.NewRouter()
		observability.RegisterRoutes(router, checker, registry)
		httpServer = &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: router}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("health/metrics server stopped")
			}
		}()
		log.WithField("addr", cfg.Observability.MetricsAddr).Info("health/metrics server listening")
	}

	if watcher == nil && scheduler == nil && httpServer == nil {
		log.Info("no watcher, scheduler, or HTTP server configured; graph built once and exiting")
		return nil
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}
	return nil
}

// rebuild loads the workspace fresh, builds a new graph, and swaps it in
// atomically. Readers that already hold the old *graph.Graph keep using
// it safely — Graph is immutable after Build, so there is nothing to
// invalidate on the old reference beyond this server's own pointer.
func (s *server) rebuild() error {
	start := time.Now()

	loadStart := time.Now()
	result, loadErrs := workspace.LoadDirectory(s.dir)
	s.metrics.LoadDuration.WithLabelValues("directory").Observe(time.Since(loadStart).Seconds())
	if loadErrs.HasErrors() {
		s.metrics.LoadErrors.WithLabelValues("parse").Add(float64(len(loadErrs.ParseErrors)))
		s.metrics.LoadErrors.WithLabelValues("duplicate").Add(float64(len(loadErrs.Duplicates)))
		s.metrics.BuildErrors.WithLabelValues("workspace_load").Inc()
		return fmt.Errorf("loading workspace %s:\n%s", s.dir, loadErrs.Error())
	}

	reg, schemaErrs := schema.BuildRegistry(result.Schemas)
	if len(schemaErrs) > 0 {
		s.metrics.BuildErrors.WithLabelValues("schema_registry").Inc()
		return fmt.Errorf("building schema registry: %v", schemaErrs[0])
	}

	g := graph.New(reg)
	g.SetLogger(s.log)
	if err := g.AddEntities(result); err != nil {
		s.metrics.BuildErrors.WithLabelValues("add_entities").Inc()
		return fmt.Errorf("adding entities: %w", err)
	}
	if err := g.Build(); err != nil {
		s.metrics.BuildErrors.WithLabelValues("build").Inc()
		return fmt.Errorf("building graph: %w", err)
	}

	s.mu.Lock()
	s.current = g
	s.mu.Unlock()

	if s.cacheStore != nil {
		if err := graph.SaveGraph(context.Background(), s.cacheStore, g); err != nil {
			s.log.WithError(err).Warn("writing graph cache snapshot after rebuild failed")
		}
	}
	if s.sqliteIndexPath != "" {
		if err := rebuildSQLiteIndex(context.Background(), s.sqliteIndexPath, g); err != nil {
			s.log.WithError(err).Warn("rebuilding sqlite index after rebuild failed")
		}
	}

	if err := s.cache.Invalidate(context.Background()); err != nil {
		s.log.WithError(err).Warn("invalidating query result cache after rebuild failed")
	}

	s.metrics.BuildDuration.Observe(time.Since(start).Seconds())
	s.metrics.BuildEntities.Set(float64(len(g.ListAll())))
	s.metrics.BuildsCompleted.Inc()
	return nil
}

// Graph returns the currently active, fully-built graph.
func (s *server) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}
