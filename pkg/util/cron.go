package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five-field cron format (minute, hour, day, month, weekday) plus @daily style descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Schedule is a parsed cron expression for periodic worker jobs.
type Schedule struct {
	Expr     string
	schedule cron.Schedule
}

// ParseSchedule parses expr. Timezone prefixes (CRON_TZ=, TZ=) are rejected so
// every schedule is evaluated in UTC.
func ParseSchedule(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return nil, fmt.Errorf("invalid cron expression: timezone prefixes are not supported")
	}
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return &Schedule{Expr: expr, schedule: s}, nil
}

// Next returns the first run strictly after from, in UTC.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from.UTC())
}
