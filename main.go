package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"statsink/internal/chart"
	"statsink/internal/config"
	"statsink/internal/db"
	"statsink/internal/dispatch"
	"statsink/internal/http/handlers"
	appmw "statsink/internal/http/middleware"
	"statsink/internal/logging"
	"statsink/internal/metrics"
	"statsink/internal/stats"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	metrics.Register(nil)

	registry, err := stats.NewRegistry(gdb, stats.BuiltinDomains(), cfg.EnabledDomains, cfg.Window)
	if err != nil {
		log.Fatalf("failed to build domain registry: %v", err)
	}

	renderer := chart.NewQuickChart(cfg.ChartURL, cfg.DispatchTimeout)
	dispatcher := dispatch.NewWebhook(cfg.WebhookURL, cfg.DispatchTimeout)
	scheduler := stats.NewScheduler(registry, renderer, dispatcher, cfg.Interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, logging.New())

	schedDone := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(schedDone)
	}()

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	auth := appmw.RequireToken(cfg)
	r.POST("/submit", auth(handlers.SubmitHandler(registry)))
	r.GET("/stats", auth(handlers.StatsHandler(registry)))
	r.GET("/metrics", auth(handlers.PrometheusHandler()))

	srv := &fasthttp.Server{Handler: handlers.RequestLogger(r.Handler)}

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	log.Printf("statsink listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// A cycle that started before shutdown runs to completion.
	<-schedDone
}
