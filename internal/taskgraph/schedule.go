package taskgraph

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"

	// CRON schedules name IANA time zones; embed the database so validation
	// does not depend on the host.
	_ "time/tzdata"
)

var intervalRe = regexp.MustCompile(`(?i)^(\d+)\s*(MINUTES?|M|SECONDS?|HOURS?)$`)

var (
	domWeekdayRe = regexp.MustCompile(`^(\d+)W$`)
	domOffsetRe  = regexp.MustCompile(`(?i)^L-(\d+)$`)
	dowLastRe    = regexp.MustCompile(`(?i)^([0-9A-Z]+)L$`)
	dowNthRe     = regexp.MustCompile(`(?i)^([0-9A-Z]+)#(\d+)$`)
)

// stripCronExtensions rewrites the Snowflake cron extensions that robfig/cron
// does not know into plain values so the rest of the expression can still be
// checked. Day of month takes L, LW, L-n and nW. Day of week takes L, nL and
// n#k.
func stripCronExtensions(fields []string) ([]string, error) {
	out := append([]string(nil), fields...)

	dom := strings.Split(out[2], ",")
	for i, item := range dom {
		switch {
		case strings.EqualFold(item, "L"), strings.EqualFold(item, "LW"):
			dom[i] = "1"
		case domWeekdayRe.MatchString(item):
			n, _ := strconv.Atoi(domWeekdayRe.FindStringSubmatch(item)[1])
			if n < 1 || n > 31 {
				return nil, fmt.Errorf("day of month %q out of range", item)
			}
			dom[i] = strconv.Itoa(n)
		case domOffsetRe.MatchString(item):
			n, _ := strconv.Atoi(domOffsetRe.FindStringSubmatch(item)[1])
			if n > 30 {
				return nil, fmt.Errorf("day of month offset %q out of range", item)
			}
			dom[i] = "1"
		}
	}
	out[2] = strings.Join(dom, ",")

	dow := strings.Split(out[4], ",")
	for i, item := range dow {
		switch {
		case strings.EqualFold(item, "L"):
			dow[i] = "6"
		case dowLastRe.MatchString(item):
			dow[i] = dowLastRe.FindStringSubmatch(item)[1]
		case dowNthRe.MatchString(item):
			m := dowNthRe.FindStringSubmatch(item)
			k, _ := strconv.Atoi(m[2])
			if k < 1 || k > 5 {
				return nil, fmt.Errorf("day of week occurrence %q out of range", item)
			}
			dow[i] = m[1]
		}
	}
	out[4] = strings.Join(dow, ",")

	return out, nil
}

// ValidateSchedule checks a SCHEDULE clause value. Accepted forms are
// "USING CRON <min> <hour> <dom> <month> <dow> <time zone>" and
// "<n> MINUTE[S]", "<n> M", "<n> SECOND[S]", "<n> HOUR[S]" with n > 0.
// The cron form accepts the Snowflake L, W and # extensions.
// Errors match sfdeploy.ErrInvalidConfig.
func ValidateSchedule(schedule string) error {
	s := strings.TrimSpace(schedule)
	if s == "" {
		return fmt.Errorf("empty schedule: %w", sfdeploy.ErrInvalidConfig)
	}

	fields := strings.Fields(s)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "USING") && strings.EqualFold(fields[1], "CRON") {
		rest := fields[2:]
		if len(rest) != 6 {
			return fmt.Errorf("schedule %q: want 5 cron fields and a time zone: %w", schedule, sfdeploy.ErrInvalidConfig)
		}
		cronFields, err := stripCronExtensions(rest[:5])
		if err != nil {
			return fmt.Errorf("schedule %q: %v: %w", schedule, err, sfdeploy.ErrInvalidConfig)
		}
		expr := "CRON_TZ=" + rest[5] + " " + strings.Join(cronFields, " ")
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("schedule %q: %v: %w", schedule, err, sfdeploy.ErrInvalidConfig)
		}
		return nil
	}

	m := intervalRe.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("schedule %q: want 'USING CRON ...' or '<n> MINUTE': %w", schedule, sfdeploy.ErrInvalidConfig)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fmt.Errorf("schedule %q: interval must be a positive integer: %w", schedule, sfdeploy.ErrInvalidConfig)
	}
	return nil
}
