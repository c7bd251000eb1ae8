package workspace

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs a periodic rebuild trigger on a cron schedule, as an
// alternative (or complement) to Watcher's change-driven rebuilds —
// grounded on cmd/spoke-aggregator/main.go's cron.New()/AddFunc usage in
// the teacher codebase.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Entry
}

// NewScheduler creates a Scheduler with no jobs registered yet.
func NewScheduler(log *logrus.Entry) *Scheduler {
	return &Scheduler{cron: cron.New(), log: log}
}

// AddRebuild registers fn to run on the standard 5-field cron spec.
func (s *Scheduler) AddRebuild(spec string, fn func()) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.log != nil {
			s.log.WithField("schedule", spec).Info("running scheduled rebuild")
		}
		fn()
	})
	return err
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for any in-flight job to finish, then halts the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
