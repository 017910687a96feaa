package schedule

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the autopilot's in-process cron triggers. It is an
// alternative to external cron hitting the /cron endpoints; both paths share
// the same job code.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// New creates a scheduler in UTC, matching the cron expressions the external
// trigger setup uses.
func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s}
}

// Cron registers a job under a unique tag with a standard cron expression.
func (s *Scheduler) Cron(tag, expr string, job func() error) error {
	_, err := s.scheduler.Cron(expr).Tag(tag).Do(job)
	return err
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs returns all registered jobs.
func (s *Scheduler) Jobs() []*gocron.Job {
	return s.scheduler.Jobs()
}
