package service

import (
	"context"
	"fmt"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/caskan"
	"portalbot-backend/internal/scrapers/estama"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/shiftcal"
	"portalbot-backend/internal/store"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/service")

const (
	report_operation = "operation"
	report_panic     = "panic"
	report_snapshot  = "snapshot"
	report_keepalive = "keepalive"
)

// CaskanAPI is the booking/shift portal.
//
// note: fault injection point
type CaskanAPI interface {
	EnsureLogin(ctx context.Context) error
	HomeInfo(ctx context.Context) (caskan.HomeInfo, error)
	Schedule(ctx context.Context) (caskan.ScheduleText, error)
	Reservations(ctx context.Context) (extract.Reservations, error)
	RoomMap(ctx context.Context) (map[string]string, error)
	CastList(ctx context.Context) ([]caskan.CastRecord, error)
	MonthlyShift(ctx context.Context, year, month int) (shiftcal.MonthlyShift, error)
}

// EstamaAPI is the guidance portal.
//
// note: fault injection point
type EstamaAPI interface {
	EnsureLogin(ctx context.Context) error
	Dashboard(ctx context.Context) (estama.Dashboard, error)
	GuidanceStatus(ctx context.Context) (estama.GuidanceStatus, error)
	Schedule(ctx context.Context) (estama.ScheduleText, error)
	Reservations(ctx context.Context) (extract.Reservations, error)
	NewsList(ctx context.Context) ([]estama.NewsItem, error)
	ClickAppeal(ctx context.Context) (bool, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, month shiftcal.MonthlyShift) (store.Snapshot, error)
	Latest(ctx context.Context, year, month int) (store.Snapshot, error)
}

type AppealResult struct {
	Clicked bool `json:"clicked"`
}

// Service is the caller facing side of the portal clients. Operations on the same
// portal never overlap, operations on different portals run concurrently.
type Service struct {
	caskan   CaskanAPI
	caskanMu sync.Mutex
	estama   EstamaAPI
	estamaMu sync.Mutex

	snapshots   SnapshotStore
	snapshotsMu sync.Mutex
	tel         telemetry.API
}

type serviceConfig struct {
	snapshots SnapshotStore
	tel       telemetry.API
}

type Option func(cfg *serviceConfig)

// WithSnapshotStore makes every successful monthly shift get saved.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(cfg *serviceConfig) {
		cfg.snapshots = s
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func New(caskanClient CaskanAPI, estamaClient EstamaAPI, options ...Option) *Service {
	assert.NotNil(caskanClient, "caskan client")
	assert.NotNil(estamaClient, "estama client")

	cfg := serviceConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	tel := cfg.tel
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	return &Service{
		caskan:    caskanClient,
		estama:    estamaClient,
		snapshots: cfg.snapshots,
		tel:       telemetry.NewScopedAPI("service", tel),
	}
}

// run executes one operation while holding the portal's lock, errors and panics
// never cross this boundary.
func run[T any](ctx context.Context, s *Service, mu *sync.Mutex, op string, fn func(ctx context.Context) (T, error)) (res Result[T]) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	mu.Lock()
	defer mu.Unlock()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("%s: panic: %v", op, r)
		s.tel.ReportBroken(report_panic, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res = Result[T]{Err: err.Error()}
	}()

	start := time.Now()
	value, err := fn(ctx)
	span.SetAttributes(attribute.Int64("duration_ms", time.Since(start).Milliseconds()))
	if err != nil {
		s.tel.ReportWarning(report_operation, op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result[T]{Err: ErrorMessage(err)}
	}
	return Result[T]{Value: value}
}

func (s *Service) CaskanHome(ctx context.Context) Result[caskan.HomeInfo] {
	return run(ctx, s, &s.caskanMu, "caskan.home", s.caskan.HomeInfo)
}

func (s *Service) CaskanSchedule(ctx context.Context) Result[caskan.ScheduleText] {
	return run(ctx, s, &s.caskanMu, "caskan.schedule", s.caskan.Schedule)
}

func (s *Service) CaskanReservations(ctx context.Context) Result[extract.Reservations] {
	return run(ctx, s, &s.caskanMu, "caskan.reservations", s.caskan.Reservations)
}

func (s *Service) CaskanRooms(ctx context.Context) Result[map[string]string] {
	return run(ctx, s, &s.caskanMu, "caskan.rooms", s.caskan.RoomMap)
}

func (s *Service) CaskanCasts(ctx context.Context) Result[[]caskan.CastRecord] {
	return run(ctx, s, &s.caskanMu, "caskan.casts", s.caskan.CastList)
}

// CaskanMonthlyShift returns the aggregated month and saves it when a snapshot store
// is configured, a failed save is only reported.
func (s *Service) CaskanMonthlyShift(ctx context.Context, year, month int) Result[shiftcal.MonthlyShift] {
	return run(ctx, s, &s.caskanMu, "caskan.monthly-shift", func(ctx context.Context) (shiftcal.MonthlyShift, error) {
		shift, err := s.caskan.MonthlyShift(ctx, year, month)
		if err != nil {
			return shiftcal.MonthlyShift{}, err
		}
		if s.snapshots != nil {
			_, err := s.snapshots.Save(ctx, shift)
			if err != nil {
				s.tel.ReportWarning(report_snapshot, err)
			}
		}
		return shift, nil
	})
}

// LatestMonthlySnapshot returns the last saved aggregate of a month without touching
// the portal.
func (s *Service) LatestMonthlySnapshot(ctx context.Context, year, month int) Result[store.Snapshot] {
	return run(ctx, s, &s.snapshotsMu, "snapshot.latest", func(ctx context.Context) (store.Snapshot, error) {
		if s.snapshots == nil {
			return store.Snapshot{}, store.ErrNotFound
		}
		return s.snapshots.Latest(ctx, year, month)
	})
}

func (s *Service) EstamaDashboard(ctx context.Context) Result[estama.Dashboard] {
	return run(ctx, s, &s.estamaMu, "estama.dashboard", s.estama.Dashboard)
}

func (s *Service) EstamaGuidance(ctx context.Context) Result[estama.GuidanceStatus] {
	return run(ctx, s, &s.estamaMu, "estama.guidance", s.estama.GuidanceStatus)
}

func (s *Service) EstamaSchedule(ctx context.Context) Result[estama.ScheduleText] {
	return run(ctx, s, &s.estamaMu, "estama.schedule", s.estama.Schedule)
}

func (s *Service) EstamaReservations(ctx context.Context) Result[extract.Reservations] {
	return run(ctx, s, &s.estamaMu, "estama.reservations", s.estama.Reservations)
}

func (s *Service) EstamaNews(ctx context.Context) Result[[]estama.NewsItem] {
	return run(ctx, s, &s.estamaMu, "estama.news", s.estama.NewsList)
}

func (s *Service) EstamaAppeal(ctx context.Context) Result[AppealResult] {
	return run(ctx, s, &s.estamaMu, "estama.appeal", func(ctx context.Context) (AppealResult, error) {
		clicked, err := s.estama.ClickAppeal(ctx)
		return AppealResult{Clicked: clicked}, err
	})
}
