package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"giipview/internal/config"
	"giipview/internal/encoder"
	"giipview/internal/encoder/vipsencoder"
	"giipview/internal/httpapi"
	"giipview/internal/logger"
	"giipview/internal/metadata"
	"giipview/internal/metrics"
	"giipview/internal/region"
	"giipview/internal/sourceimage/jp2source"
	"giipview/internal/sourceimage/vipssource"
	"giipview/internal/tilecache"
	"giipview/internal/tilemanager"
	"giipview/internal/watermark"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	vipsConfig := &vips.Config{
		ConcurrencyLevel: cfg.VipsConcurrency,
		MaxCacheMem:      cfg.VipsMaxCacheMB * 1024 * 1024,
		MaxCacheFiles:    0,
		MaxCacheSize:     0,
		ReportLeaks:      false,
		CacheTrace:       false,
		VectorEnabled:    true,
	}

	vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
		if level >= vips.LogLevelError {
			log.Error("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		} else if level >= vips.LogLevelWarning {
			log.Warn("vips", zap.String("domain", domain), zap.Int("level", int(level)), zap.String("message", message))
		}
	}, vips.LogLevelError)

	vips.Startup(vipsConfig)
	defer vips.Shutdown()

	log.Info("vips initialized",
		zap.Int("max_cache_mb", cfg.VipsMaxCacheMB),
		zap.Int("concurrency", cfg.VipsConcurrency),
	)
	log.Info("starting giipview server",
		zap.Int("port", cfg.Port),
		zap.String("data_dir", cfg.DataDir),
	)

	registry := metadata.New(cfg.MetadataRegistrySize, vipssource.Opener{}, jp2source.Opener{})

	var cache tilecache.Store
	if cfg.TileCacheShards > 1 {
		cache = tilecache.NewSharded(cfg.TileCacheShards, cfg.TileCacheBytes)
	} else {
		cache = tilecache.New(cfg.TileCacheBytes)
	}

	encoders := encoder.NewRegistry(
		vipsencoder.NewJPEG(),
		vipsencoder.NewPNG(),
		vipsencoder.NewWebP(),
		vipsencoder.NewTIFF(),
	)

	var wm *watermark.Watermark
	if cfg.WatermarkPath != "" {
		wm, err = loadWatermark(cfg.WatermarkPath, cfg.WatermarkOpacity, cfg.WatermarkProbability)
		if err != nil {
			log.Warn("failed to load watermark, proceeding unwatermarked", zap.Error(err), zap.String("path", cfg.WatermarkPath))
			wm = nil
		}
	}

	manager := tilemanager.New(cache, encoders, wm, cfg.WatermarkBlockSize, cfg.MaxICCBytes)
	composer := region.New(manager)

	m := metrics.New()

	handlers := httpapi.New(cfg, log, registry, manager, composer, encoders, m, wm)

	mux := http.NewServeMux()
	mux.HandleFunc("/tiles/", handlers.HandleTile)
	mux.HandleFunc("/regions/", handlers.HandleRegion)
	mux.HandleFunc("/profile/", handlers.HandleProfile)
	mux.HandleFunc("/spectrum/", handlers.HandleSpectrum)
	mux.HandleFunc("/healthz", handlers.HandleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	handler := handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(mux))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	log.Info("server started", zap.Int("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
