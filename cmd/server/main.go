package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelstream/api"
	"reelstream/config"
	"reelstream/handlers"
	"reelstream/internal/logging"
	"reelstream/services/catalog"
	"reelstream/services/feed"
	"reelstream/services/search"
	"reelstream/utils"
)

func main() {
	configPath := flag.String("config", "settings.yaml", "path to the settings file (.json or .yaml)")
	writeDefaults := flag.Bool("write-config", false, "write the file settings, with defaults filled in, back to -config and exit")
	flag.Parse()

	mgr := config.NewManager(*configPath)
	if *writeDefaults {
		// Environment overrides carry secrets; only file values are written back.
		fileSettings, err := mgr.LoadFile()
		if err != nil {
			log.Fatalf("[main] load config: %v", err)
		}
		if err := mgr.Save(fileSettings); err != nil {
			log.Fatalf("[main] save config: %v", err)
		}
		log.Printf("[main] wrote settings to %s", mgr.Path())
		return
	}

	settings, err := mgr.Load()
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}

	logCloser, err := logging.Setup(settings.Log)
	if err != nil {
		log.Fatalf("[main] set up logging: %v", err)
	}
	defer logCloser.Close()

	if settings.Catalog.APIKey == "" && settings.Catalog.ReadToken == "" {
		log.Printf("[main] no catalog credentials configured; catalog requests will fail until one is set")
	}

	client := catalog.NewClient(settings.Catalog, nil)
	handler, shutdown := buildHandler(settings, client)
	defer shutdown()

	srv := &http.Server{
		Addr:              settings.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", settings.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}
}

// buildHandler wires the catalog into the feed and search engines and mounts
// them on a router. The returned func closes every live session.
func buildHandler(settings config.Settings, client catalog.API) (http.Handler, func()) {
	origins := utils.OriginPolicy{Extra: settings.Server.AllowedOrigins}
	views := handlers.NewViews(settings.Catalog.ImageBaseURL)
	idle := settings.Server.SessionIdle()

	feedRegistry := handlers.NewFeedRegistry(idle)
	feeds := handlers.NewFeedsHandler(feedRegistry, handlers.ControllerFactory(client, feed.Options{
		EdgeThreshold: settings.Feed.EdgeThreshold,
		MaxPage:       settings.Feed.MaxPage,
	}), views, origins)

	searchRegistry := handlers.NewSearchRegistry(idle)
	searches := handlers.NewSearchHandler(searchRegistry, handlers.AggregatorFactory(client, search.Options{
		Debounce:       settings.Search.Debounce(),
		MinQueryLength: settings.Search.MinQueryLength,
	}), views, origins)

	genres := handlers.NewGenresHandler(catalog.NewDirectory(client))
	version := handlers.NewVersionHandler(nil, settings)

	limiter := api.NewIPRateLimiterPerMinute(settings.Server.RateLimitPerMinute, settings.Server.RateLimitBurst)

	r := utils.NewRouter(origins)
	api.Register(r, api.Routes{Feeds: feeds, Search: searches, Genres: genres, Version: version}, limiter, settings.Server.AccessToken)

	return r, func() {
		feedRegistry.Close()
		searchRegistry.Close()
		if limiter != nil {
			limiter.Close()
		}
	}
}
