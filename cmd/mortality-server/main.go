package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/mortality.report/internal/aggregate"
	"github.com/banshee-data/mortality.report/internal/api"
	"github.com/banshee-data/mortality.report/internal/cache"
	"github.com/banshee-data/mortality.report/internal/choropleth"
	"github.com/banshee-data/mortality.report/internal/config"
	"github.com/banshee-data/mortality.report/internal/dashboard"
	"github.com/banshee-data/mortality.report/internal/dataset"
	"github.com/banshee-data/mortality.report/internal/db"
	"github.com/banshee-data/mortality.report/internal/render"
	"github.com/banshee-data/mortality.report/internal/timeutil"
	"github.com/banshee-data/mortality.report/internal/version"
)

var (
	listen      = flag.String("listen", "", "Listen address (default :8080)")
	configPath  = flag.String("config", "", "Path to JSON server config")
	dotenvPath  = flag.String("env-file", ".env", "Path to .env file with MORTALITY_* overrides")
	dbPath      = flag.String("db", "", "sqlite store populated by mortality-import; CSVs are used when empty")
	countiesCSV = flag.String("counties", "", "County reference CSV")
	factsCSV    = flag.String("facts", "", "Mortality fact CSV")
	redisAddr   = flag.String("redis", "", "Redis address for the shared chart cache")
	devMode     = flag.Bool("dev", false, "Serve the landing page from ./internal/api/static")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *devMode); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}

// loadConfig layers the config file, environment and explicitly set flags.
func loadConfig() (*config.ServerConfig, error) {
	cfg, err := config.Load(*configPath, *dotenvPath)
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.SetListen(*listen)
		case "db":
			cfg.SetDBPath(*dbPath)
		case "counties":
			cfg.SetCountiesCSV(*countiesCSV)
		case "facts":
			cfg.SetFactsCSV(*factsCSV)
		case "redis":
			cfg.SetRedisAddr(*redisAddr)
		}
	})
	return cfg, nil
}

func run(ctx context.Context, cfg *config.ServerConfig, dev bool) error {
	var store *db.DB
	if p := cfg.GetDBPath(); p != "" {
		var err error
		if store, err = db.Open(p); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	tables, err := dataset.Load(ctx, store, cfg.GetCountiesCSV(), cfg.GetFactsCSV())
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}

	chartCache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}

	if host := cfg.GetAssetsHost(); host != "" {
		render.AssetsHost = host
	}

	opacity := cfg.GetOpacity()
	maps := choropleth.NewBuilder(cfg.GetGeoJSONBase())
	maps.Style = cfg.GetMapStyle()

	server := api.NewServer(api.ServerConfig{
		Pipeline: dashboard.NewPipeline(dashboard.PipelineConfig{
			Aggregator: aggregate.NewEngine(tables.Facts, tables.Counties),
			Cache:      chartCache,
		}),
		Maps:        maps,
		Counties:    tables.Counties,
		Facts:       tables.Facts,
		DefaultYear: cfg.GetDefaultYear(),
		DefaultMode: cfg.GetDefaultMode(),
		Colorscale:  cfg.GetColorscale(),
		Opacity:     &opacity,
	})

	wsCfg := api.WebServerConfig{Address: cfg.GetListen(), API: server}
	if store != nil {
		wsCfg.Admin = store
	}
	if dev {
		wsCfg.StaticDir = "./internal/api/static"
	}
	return api.NewWebServer(wsCfg).Start(ctx)
}

// openCache returns the Redis cache when configured and reachable, else the
// in-process cache. A zero cache size disables caching.
func openCache(ctx context.Context, cfg *config.ServerConfig) (cache.Cache, error) {
	if client := cache.OpenRedis(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB()); client != nil {
		r := cache.NewRedis(client, "", cfg.GetCacheTTL())
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis %s: %w", cfg.GetRedisAddr(), err)
		}
		log.Printf("chart cache: redis %s", cfg.GetRedisAddr())
		return r, nil
	}
	if n := cfg.GetCacheSize(); n > 0 {
		log.Printf("chart cache: in-process, %d entries, ttl %s", n, cfg.GetCacheTTL())
		return cache.NewMemory(n).WithTTL(cfg.GetCacheTTL(), timeutil.RealClock{}), nil
	}
	log.Printf("chart cache: disabled")
	return nil, nil
}
