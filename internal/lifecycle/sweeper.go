package lifecycle

import (
	"context"
	"time"

	"snackbox/backend/internal/config"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskSweepExpired is the asynq task type for the expiry sweep.
const TaskSweepExpired = "snack:sweep-expired"

// Sweeper runs the server-driven expiry sweep as a periodic background job.
// Session expiry is wall-clock based and recomputable from persisted state,
// so a sweep after a restart still ends everything that lapsed in between;
// client-side timers are only a UI convenience.
type Sweeper struct {
	lifecycle *Service
	server    *asynq.Server
	client    *asynq.Client
	interval  time.Duration
}

// NewSweeper builds the sweep worker on the shared redis instance.
func NewSweeper(lc *Service, redisAddr, redisPassword string, redisDB int) *Sweeper {
	opt := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword, DB: redisDB}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{"snack": 1},
	})
	return &Sweeper{
		lifecycle: lc,
		server:    server,
		client:    asynq.NewClient(opt),
		interval:  config.SweepInterval,
	}
}

// Start launches the worker and the ticker that enqueues sweep tasks.
func (s *Sweeper) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSweepExpired, s.handleSweep)

	go func() {
		if err := s.server.Run(mux); err != nil {
			zap.L().Error("sweeper server stopped", zap.Error(err))
		}
	}()
	go s.enqueueLoop(ctx)

	zap.L().Info("expiry sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop shuts the worker down.
func (s *Sweeper) Stop() {
	s.server.Shutdown()
	s.client.Close()
}

func (s *Sweeper) handleSweep(ctx context.Context, _ *asynq.Task) error {
	ended, err := s.lifecycle.SweepExpired(time.Now())
	if err != nil {
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return err
	}
	if ended > 0 {
		zap.L().Info("expiry sweep ended sessions", zap.Int("count", ended))
	}
	return nil
}

func (s *Sweeper) enqueueLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := asynq.NewTask(TaskSweepExpired, nil)
			if _, err := s.client.Enqueue(task, asynq.Queue("snack")); err != nil {
				zap.L().Error("failed to enqueue sweep task", zap.Error(err))
			}
		}
	}
}
