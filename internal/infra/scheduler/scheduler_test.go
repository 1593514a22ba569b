package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"flight_delay_tracker/internal/app"
	"flight_delay_tracker/internal/domain/clock"

	"github.com/sirupsen/logrus"
)

type noopJob struct{}

func (noopJob) Name() string { return "noop" }

func (noopJob) Run(context.Context, time.Time) (app.JobStats, error) { return app.JobStats{}, nil }

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStart_RejectsInvalidSpec(t *testing.T) {
	runner := app.NewJobRunner(clock.System{}, nil, time.Minute, testLogger())
	s := NewJobScheduler(runner, testLogger(), Entry{Spec: "every day", Job: noopJob{}})

	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start() error = nil, want invalid spec error")
	}
}

func TestStartStop(t *testing.T) {
	runner := app.NewJobRunner(clock.System{}, nil, time.Minute, testLogger())
	s := NewJobScheduler(runner, testLogger(),
		Entry{Spec: "0 6 * * *", Job: noopJob{}},
		Entry{Spec: "0 */3 * * *", Job: noopJob{}},
	)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := len(s.cronEngine.Entries()); got != 2 {
		t.Errorf("registered entries = %d, want 2", got)
	}
	s.Stop()
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"entry", 3, "next", "soon", "dangling"})
	if len(fields) != 2 || fields["entry"] != 3 || fields["next"] != "soon" {
		t.Errorf("toFields() = %v", fields)
	}
}
