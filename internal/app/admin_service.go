package app

import (
	"context"
	"fmt"
	"sort"
)

// AdminService exposes operator actions, currently manual job runs.
type AdminService struct {
	runner          *JobRunner
	jobs            map[string]Job
	adminTelegramID int64
}

func NewAdminService(runner *JobRunner, adminID int64, jobs ...Job) *AdminService {
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name()] = j
	}
	return &AdminService{
		runner:          runner,
		jobs:            byName,
		adminTelegramID: adminID,
	}
}

// RunJob runs the named job once through the shared runner.
func (s *AdminService) RunJob(ctx context.Context, performingAdminID int64, name string) (JobStats, error) {
	if performingAdminID != s.adminTelegramID {
		return JobStats{}, ErrAdminNotAuthorized
	}
	job, ok := s.jobs[name]
	if !ok {
		return JobStats{}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.runner.Run(ctx, job)
}

func (s *AdminService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}

// JobNames returns the registered job names in sorted order.
func (s *AdminService) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
