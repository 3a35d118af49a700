// Package scheduler runs the periodic session sweep.
package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper drops idle sessions and reports how many were removed.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	maxIdle time.Duration
}

func New(sweeper Sweeper, maxIdle time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		maxIdle: maxIdle,
	}
}

// Start schedules the sweep on the given cron spec (e.g. "@hourly").
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if n := s.sweeper.Sweep(s.maxIdle); n > 0 {
			log.Printf("swept %d idle session(s)", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("session sweep scheduled (%s, max idle %s)", spec, s.maxIdle)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
