package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// cronで定期実行する。同じジョブの実行は重ならない（前回が終わるまでスキップ）
type Scheduler struct {
	c       *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
}

func NewScheduler(logger zerolog.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		c:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

// specは標準のcron式か "@every 1m" 形式
func (s *Scheduler) Add(spec string, j Job) error {
	skip := cron.SkipIfStillRunning(cron.DiscardLogger)
	_, err := s.c.AddJob(spec, skip(s.build(j)))
	return err
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// 実行中のジョブが終わるのを待つ（ctxの期限まで）
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("cron jobs still running at shutdown")
	}
}

func (s *Scheduler) build(j Job) cron.Job {
	name := j.Name()
	return cron.FuncJob(func() {
		logger := s.logger.With().Str("job", name).Logger()

		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background()), s.timeout)
		defer cancel()

		start := time.Now()
		logger.Debug().Msg("job started")
		if err := j.Run(ctx); err != nil {
			logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
			return
		}
		logger.Debug().Dur("duration", time.Since(start)).Msg("job finished")
	})
}
