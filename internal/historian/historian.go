// Package historian drains the action queue into the game_actions table.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/gridclash/internal/database"
	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Popper is the blocking list pop the service reads from. *redis.Client satisfies it.
type Popper interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Writer persists one batch. It must be safe to call again with records already written.
type Writer func(ctx context.Context, records []models.ActionRecord) error

// PgWriter inserts each batch in a single transaction.
func PgWriter(pool *pgxpool.Pool) Writer {
	return func(ctx context.Context, records []models.ActionRecord) error {
		return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
			return database.InsertActionsTx(ctx, tx, records)
		})
	}
}

// Service pops records, accumulates them and flushes on size or on a timer.
type Service struct {
	queue      Popper
	name       string
	write      Writer
	batchSize  int
	flushDelay time.Duration
	log        logrus.FieldLogger

	batch []models.ActionRecord
}

func NewService(queue Popper, name string, write Writer, batchSize int, flushDelay time.Duration, logger logrus.FieldLogger) *Service {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		queue:      queue,
		name:       name,
		write:      write,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		log:        logger,
		batch:      make([]models.ActionRecord, 0, batchSize),
	}
}

// Run reads until ctx is cancelled, then flushes whatever is left.
func (s *Service) Run(ctx context.Context) {
	s.log.WithField("queue", s.name).Info("historian started")
	defer s.log.Info("historian stopped")

	lastFlush := time.Now()
	for ctx.Err() == nil {
		res, err := s.queue.BLPop(ctx, s.flushDelay, s.name).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			if ctx.Err() == nil {
				s.log.WithError(err).Error("BLPop")
				time.Sleep(s.flushDelay)
			}
		case len(res) >= 2:
			// res[0] is the queue name and res[1] the payload.
			var rec models.ActionRecord
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				s.log.WithError(err).Warn("invalid action record")
				break
			}
			s.batch = append(s.batch, rec)
		}

		if len(s.batch) >= s.batchSize || (len(s.batch) > 0 && time.Since(lastFlush) >= s.flushDelay) {
			s.flush(ctx)
			lastFlush = time.Now()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(shutdownCtx)
}

// flush writes the batch. On failure the records are kept for the next attempt.
func (s *Service) flush(ctx context.Context) {
	if len(s.batch) == 0 {
		return
	}
	if err := s.write(ctx, s.batch); err != nil {
		s.log.WithError(err).WithField("pending", len(s.batch)).Error("flush failed")
		return
	}
	s.log.Debugf("flushed %d actions", len(s.batch))
	s.batch = s.batch[:0]
}

// Pending returns how many records await a flush.
func (s *Service) Pending() int {
	return len(s.batch)
}
