package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sekolahlab/examgate-backend/internal/clock"
	"github.com/sekolahlab/examgate-backend/internal/service"
)

const SweepBatchSize = 100

// ExpirySweepWorker proactively settles expired in-progress attempts. The
// lifecycle already settles lazily on touch, so this worker is optional: it
// only shortens the window during which an abandoned attempt has no graded
// result. Settlement goes through the controller's conditional update, so a
// sweep racing a student's own request is harmless.
type ExpirySweepWorker struct {
	attempts service.AttemptStore
	svc      *service.AttemptService
	clk      clock.Clock
	interval time.Duration
	log      zerolog.Logger
}

func NewExpirySweepWorker(
	attempts service.AttemptStore,
	svc *service.AttemptService,
	clk clock.Clock,
	interval time.Duration,
	log zerolog.Logger,
) *ExpirySweepWorker {
	return &ExpirySweepWorker{
		attempts: attempts,
		svc:      svc,
		clk:      clk,
		interval: interval,
		log:      log.With().Str("component", "expiry_sweep_worker").Logger(),
	}
}

func (w *ExpirySweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExpirySweepWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweepWorker) sweep(ctx context.Context) {
	expired, err := w.attempts.ListExpired(ctx, w.clk.Now(), SweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("List expired attempts failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	settled := 0
	for i := range expired {
		if err := w.svc.SettleExpired(ctx, &expired[i]); err != nil {
			w.log.Warn().
				Err(err).
				Str("attempt_id", expired[i].ID.String()).
				Msg("Settle failed, will retry next sweep")
			continue
		}
		settled++
	}

	w.log.Info().
		Int("settled", settled).
		Int("found", len(expired)).
		Msg("Expiry sweep complete")
}
