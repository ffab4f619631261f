package main

import (
	"flag"
	"portalbot-backend/internal/components/chrono"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/config"
	"portalbot-backend/internal/service"
	"portalbot-backend/internal/store"
	"portalbot-backend/pkg/serviceutil"
	"time"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "portald.json5", "Path to the config file, a sibling .local file overrides it.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	cfg, err := config.Load(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	telemetry.InitSlog(*verbose, cfg.Log)
	tel := telemetry.NewOtelAPI(telemetry.SlogAPI{})

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		serviceutil.Fatal("load timezone", err)
	}

	caskanClient, err := cfg.CaskanClient(tel)
	if err != nil {
		serviceutil.Fatal("init caskan client", err)
	}
	estamaClient, err := cfg.EstamaClient(tel)
	if err != nil {
		serviceutil.Fatal("init estama client", err)
	}

	options := []service.Option{service.WithCustomTelemetryAPI(tel)}
	if cfg.Snapshots.Database != "" {
		snapshots, err := store.Open(cfg.Snapshots.Database, clock, cfg.Snapshots.KeepPerMonth)
		if err != nil {
			serviceutil.Fatal("open snapshot store", err)
		}
		defer snapshots.Close()
		options = append(options, service.WithSnapshotStore(snapshots))
	}
	svc := service.New(caskanClient, estamaClient, options...)

	cron := chrono.NewStandardCron(clock, tel)
	defer func() {
		<-cron.Stop().Done()
	}()
	if cfg.KeepAlive.Cron != "" {
		err = svc.ScheduleKeepAlive(
			ctx, cron,
			cfg.KeepAlive.Cron,
			time.Duration(cfg.KeepAlive.TimeoutSeconds)*time.Second,
		)
		if err != nil {
			serviceutil.Fatal("schedule keepalive", err)
		}
	}

	server := serviceutil.NewHttpServer(cfg.Server.Port, svc.Handler(service.HandlerOptions{
		CacheTTL:  time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		CacheSize: cfg.Server.CacheSize,
	}))
	err = serviceutil.ServeUntilDone(ctx, server, 10*time.Second)
	if err != nil {
		serviceutil.Fatal("serve", err)
	}
}
