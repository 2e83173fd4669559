package worker

import (
	"context"
	"time"

	"github.com/edukita/examly-backend/internal/config"
	"github.com/edukita/examly-backend/internal/grading"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const SweepBatchSize = 100

// SweepWorker is the periodic window sweep. It times out attempts whose
// duration or window elapsed while still in progress, scoring whatever was
// answered, and marks assignments whose window closed untouched as missed.
type SweepWorker struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	log      zerolog.Logger
	interval time.Duration
}

// NewSweepWorker creates a SweepWorker.
func NewSweepWorker(pool *pgxpool.Pool, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		pool:     pool,
		rdb:      rdb,
		log:      log.With().Str("component", "sweep_worker").Logger(),
		interval: interval,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SweepWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SweepWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweepWorker) sweep(ctx context.Context) {
	timedOut, err := w.timeOutOverdueAttempts(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("overdue attempt sweep failed")
	}
	missed, err := w.markMissedAssignments(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("missed assignment sweep failed")
	}
	if timedOut > 0 || missed > 0 {
		w.log.Info().Int("timed_out", timedOut).Int64("missed", missed).Msg("Sweep pass finished")
	}
}

type overdueAttempt struct {
	ID                uuid.UUID
	AssignmentID      uuid.UUID
	MaxScore          float64
	PassingPercentage float64
}

// timeOutOverdueAttempts finalizes in-progress attempts whose deadline or
// window passed. Each attempt is scored from its stored responses against the
// frozen max, exactly as a student-initiated completion would be.
func (w *SweepWorker) timeOutOverdueAttempts(ctx context.Context) (int, error) {
	rows, err := w.pool.Query(ctx, `
		SELECT a.id, a.assignment_id, a.max_score, e.passing_percentage
		FROM attempts a
		JOIN assignments s ON s.id = a.assignment_id
		JOIN exams e ON e.id = a.exam_id
		WHERE a.status = 'in_progress'
		  AND (
			a.started_at + make_interval(mins => COALESCE(s.custom_duration_minutes, e.duration_minutes)) <= NOW()
			OR COALESCE(s.custom_end_at, e.end_at) <= NOW()
		  )
		LIMIT $1`,
		SweepBatchSize,
	)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var overdue []overdueAttempt
	for rows.Next() {
		var a overdueAttempt
		if err := rows.Scan(&a.ID, &a.AssignmentID, &a.MaxScore, &a.PassingPercentage); err != nil {
			return 0, err
		}
		overdue = append(overdue, a)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	closed := 0
	for _, a := range overdue {
		if err := w.timeOutAttempt(ctx, a); err != nil {
			w.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("failed to time out attempt")
			continue
		}
		closed++
	}
	return closed, nil
}

func (w *SweepWorker) timeOutAttempt(ctx context.Context, a overdueAttempt) error {
	var total float64
	err := w.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(score_awarded), 0) FROM responses WHERE attempt_id = $1`,
		a.ID,
	).Scan(&total)
	if err != nil {
		return err
	}

	summary := grading.Summarize(total, a.MaxScore, a.PassingPercentage)

	err = repository.WithTx(ctx, w.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE attempts
			SET status = 'timed_out', score = $2, percentage = $3, passed = $4, completed_at = NOW()
			WHERE id = $1 AND status = 'in_progress'`,
			a.ID, summary.Score, summary.Percentage, summary.Passed,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// Completed between the select and now; nothing to do.
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE assignments SET status = 'completed' WHERE id = $1`,
			a.AssignmentID,
		)
		return err
	})
	if err != nil {
		return err
	}

	if w.rdb != nil {
		_ = w.rdb.Del(ctx, config.CacheKey.AttemptDeadlineKey(a.ID.String())).Err()
	}

	w.log.Info().
		Str("attempt_id", a.ID.String()).
		Float64("score", summary.Score).
		Msg("Attempt timed out")
	return nil
}

// markMissedAssignments flips assignments whose effective window closed
// before any attempt was started.
func (w *SweepWorker) markMissedAssignments(ctx context.Context) (int64, error) {
	tag, err := w.pool.Exec(ctx, `
		UPDATE assignments s
		SET status = 'missed'
		FROM exams e
		WHERE e.id = s.exam_id
		  AND s.status = 'assigned'
		  AND COALESCE(s.custom_end_at, e.end_at) <= NOW()`,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
