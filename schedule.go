package pinpoint

import (
	"context"
	"fmt"

	"github.com/raphi011/pinpoint/internal/model"
	"github.com/robfig/cron/v3"
)

type ScheduledRun struct {
	// Test is the test method to be run.
	Test model.Description
	// Schedule defines how often a run is scheduled. For the format see
	// https://pkg.go.dev/github.com/robfig/cron#hdr-CRON_Expression_Format
	Schedule string
	// EntryID identifies the cronjob
	EntryID cron.EntryID
}

func (s *Server) startSchedules() error {
	s.cron = cron.New()

	for i := range s.schedules {
		schedule := &s.schedules[i]

		if _, _, err := s.lookup(schedule.Test); err != nil {
			return fmt.Errorf("starting scheduled run of %s: %w", schedule.Test, err)
		}

		test := schedule.Test

		entryID, err := s.cron.AddFunc(schedule.Schedule, func() {
			if _, err := s.execute(context.Background(), test, "scheduled"); err != nil {
				s.log.Error("scheduled run failed", "test", test.String(), "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduling run of %s: %w", test, err)
		}

		schedule.EntryID = entryID
	}

	s.cron.Start()

	return nil
}
