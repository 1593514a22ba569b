package scheduler

import (
	"context"
	"fmt"
	"time"

	"flight_delay_tracker/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Entry binds a job to its cron expression.
type Entry struct {
	Spec string
	Job  app.Job
}

// JobScheduler runs the periodic jobs. Jobs are independent: a slow pass of one
// never delays another, and interactive requests are never blocked by a job.
type JobScheduler struct {
	cronEngine *cron.Cron
	runner     *app.JobRunner
	entries    []Entry
	logger     *logrus.Entry
}

func NewJobScheduler(runner *app.JobRunner, logger *logrus.Entry, entries ...Entry) *JobScheduler {
	return &JobScheduler{
		// Cron expressions are evaluated in UTC, like every other instant in the system.
		cronEngine: cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger{logger}))),
		runner:     runner,
		entries:    entries,
		logger:     logger,
	}
}

// Start registers every entry and starts the cron engine. Invalid expressions abort
// start-up before any job is scheduled.
func (s *JobScheduler) Start() error {
	s.logger.Info("Starting job scheduler...")

	for _, e := range s.entries {
		job := e.Job
		if _, err := s.cronEngine.AddFunc(e.Spec, func() {
			s.logger.WithField("job", job.Name()).Info("Cron job triggered")
			// Per-pass timeout is applied by the runner.
			_, _ = s.runner.Run(context.Background(), job)
		}); err != nil {
			return fmt.Errorf("could not add cron job %s (%q): %w", job.Name(), e.Spec, err)
		}
		s.logger.WithFields(logrus.Fields{"job": job.Name(), "spec": e.Spec}).Info("Cron job registered")
	}

	s.cronEngine.Start()
	s.logger.Info("Job scheduler started.")
	return nil
}

func (s *JobScheduler) Stop() {
	s.logger.Info("Stopping job scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Job scheduler gracefully stopped.")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
