package globals

import (
	"context"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/config"
	"portalbot-backend/internal/service"
)

// flags of the root command
var (
	ConfigPath string
	Verbose    bool
	JSON       bool
)

type keyType int

var key keyType

type Value struct {
	Service *service.Service
	Config  config.Config
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key).(*Value)
}

// Init loads the config and builds a service talking to the portals directly.
func Init(ctx context.Context) (context.Context, error) {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return ctx, err
	}
	telemetry.InitSlog(Verbose, telemetry.LogFileConfig{})
	tel := telemetry.SlogAPI{}

	caskanClient, err := cfg.CaskanClient(tel)
	if err != nil {
		return ctx, err
	}
	estamaClient, err := cfg.EstamaClient(tel)
	if err != nil {
		return ctx, err
	}

	svc := service.New(caskanClient, estamaClient, service.WithCustomTelemetryAPI(tel))
	return Set(ctx, &Value{Service: svc, Config: cfg}), nil
}
