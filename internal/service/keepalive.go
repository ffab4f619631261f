package service

import (
	"context"
	"portalbot-backend/internal/components/chrono"
	"time"
)

// KeepAlive checks both sessions and logs in again where they expired, so the first
// bot request after a quiet period does not pay for the login.
func (s *Service) KeepAlive(ctx context.Context) {
	s.caskanMu.Lock()
	err := s.caskan.EnsureLogin(ctx)
	s.caskanMu.Unlock()
	if err != nil {
		s.tel.ReportWarning(report_keepalive, "caskan", err)
	}

	s.estamaMu.Lock()
	err = s.estama.EnsureLogin(ctx)
	s.estamaMu.Unlock()
	if err != nil {
		s.tel.ReportWarning(report_keepalive, "estama", err)
	}
}

// ScheduleKeepAlive runs KeepAlive on the given cron spec until ctx is done, every
// run is bounded by timeout.
func (s *Service) ScheduleKeepAlive(ctx context.Context, cron chrono.CronAPI, spec string, timeout time.Duration) error {
	return cron.Cron(spec, func() {
		if ctx.Err() != nil {
			return
		}
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s.KeepAlive(runCtx)
	})
}
