package services

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/slackpanel/internal/core/domain"
)

// Deployment environments.
const (
	EnvDev        = "dev"
	EnvProduction = "production"
)

// Window defaults.
const (
	DefaultDevDays        = 2
	DefaultProductionDays = 7
	DefaultBackfillDays   = 396
	DefaultBackfillLead   = 2
)

// DefaultDaysFor returns the non-backfill window length for env.
func DefaultDaysFor(env string) int {
	if env == EnvProduction {
		return DefaultProductionDays
	}
	return DefaultDevDays
}

// WindowConfig controls how a run's date window is computed.
type WindowConfig struct {
	// DefaultDays is the window length when no days or dates are given.
	DefaultDays int

	// BackfillDays is the inclusive length of the backfill window.
	BackfillDays int

	// BackfillLead is how many days past today the backfill window ends.
	BackfillLead int
}

func (c WindowConfig) withDefaults() WindowConfig {
	if c.DefaultDays < 1 {
		c.DefaultDays = DefaultDevDays
	}
	if c.BackfillDays < 1 {
		c.BackfillDays = DefaultBackfillDays
	}
	if c.BackfillLead < 0 {
		c.BackfillLead = 0
	}
	return c
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseParams validates raw run parameters from a request body or query string.
// Every violation is a *domain.ValidationError.
func ParseParams(raw map[string]any) (domain.RunParams, error) {
	var p domain.RunParams

	var err error
	if p.Backfill, err = parseBool(raw, "backfill"); err != nil {
		return p, err
	}
	if p.ExtractOnly, err = parseBool(raw, "extractOnly", "extract_only"); err != nil {
		return p, err
	}
	if p.LoadOnly, err = parseBool(raw, "loadOnly", "load_only"); err != nil {
		return p, err
	}
	if p.Cleanup, err = parseBool(raw, "cleanup"); err != nil {
		return p, err
	}

	daysRaw, hasDays := present(raw, "days")
	startRaw, hasStart := present(raw, "start_date")
	endRaw, hasEnd := present(raw, "end_date")
	hasDates := hasStart || hasEnd

	switch {
	case p.Backfill && (hasDays || hasDates):
		return p, domain.NewValidationError("backfill", "backfill is mutually exclusive with days and start_date/end_date")
	case hasDays && hasDates:
		return p, domain.NewValidationError("days", "days and start_date/end_date are mutually exclusive")
	case p.ExtractOnly && p.LoadOnly:
		return p, domain.NewValidationError("extractOnly", "extractOnly and loadOnly are mutually exclusive")
	}

	if hasDays {
		if p.Days, err = parsePositiveInt(daysRaw); err != nil {
			return p, domain.NewValidationError("days", "days must be a positive integer, got %v", daysRaw)
		}
	}

	if hasEnd && !hasStart {
		return p, domain.NewValidationError("end_date", "end_date requires start_date")
	}
	if hasStart {
		if p.StartDate, err = parseDateParam("start_date", startRaw); err != nil {
			return p, err
		}
	}
	if hasEnd {
		if p.EndDate, err = parseDateParam("end_date", endRaw); err != nil {
			return p, err
		}
		if p.EndDate < p.StartDate {
			return p, domain.NewValidationError("end_date", "end_date %s is before start_date %s", p.EndDate, p.StartDate)
		}
	}

	return p, nil
}

// ComputeDateRange resolves the inclusive UTC window for params relative to now.
func ComputeDateRange(p domain.RunParams, cfg WindowConfig, now time.Time) (domain.DateRange, error) {
	cfg = cfg.withDefaults()
	today := domain.Day(now)

	switch {
	case p.Backfill:
		end := today.AddDate(0, 0, cfg.BackfillLead)
		return domain.DateRange{Start: end.AddDate(0, 0, -(cfg.BackfillDays - 1)), End: end}, nil

	case p.StartDate != "":
		start, err := domain.ParseDate(p.StartDate)
		if err != nil {
			return domain.DateRange{}, domain.NewValidationError("start_date", "start_date must be in YYYY-MM-DD format")
		}
		end := today
		if p.EndDate != "" {
			if end, err = domain.ParseDate(p.EndDate); err != nil {
				return domain.DateRange{}, domain.NewValidationError("end_date", "end_date must be in YYYY-MM-DD format")
			}
		}
		if end.Before(start) {
			return domain.DateRange{}, domain.NewValidationError("start_date", "start_date %s is after end date %s", p.StartDate, end.Format(domain.DateLayout))
		}
		return domain.DateRange{Start: start, End: end}, nil

	default:
		days := p.Days
		if days < 1 {
			days = cfg.DefaultDays
		}
		return domain.DateRange{Start: today.AddDate(0, 0, -(days - 1)), End: today}, nil
	}
}

// present returns the value of the first of keys that is set and non-empty.
func present(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func parseBool(raw map[string]any, keys ...string) (bool, error) {
	v, ok := present(raw, keys...)
	if !ok {
		return false, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, domain.NewValidationError(keys[0], "%s must be a boolean, got %q", keys[0], b)
		}
		return parsed, nil
	case float64:
		return b != 0, nil
	case json.Number:
		return b.String() != "0", nil
	default:
		return false, domain.NewValidationError(keys[0], "%s must be a boolean", keys[0])
	}
}

func parsePositiveInt(v any) (int, error) {
	var n int
	switch d := v.(type) {
	case int:
		n = d
	case int64:
		n = int(d)
	case float64:
		if d != math.Trunc(d) {
			return 0, fmt.Errorf("not an integer: %v", d)
		}
		n = int(d)
	case json.Number:
		i, err := strconv.Atoi(d.String())
		if err != nil {
			return 0, err
		}
		n = i
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(d))
		if err != nil {
			return 0, err
		}
		n = i
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if n < 1 {
		return 0, fmt.Errorf("not positive: %d", n)
	}
	return n, nil
}

func parseDateParam(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok || !datePattern.MatchString(s) {
		return "", domain.NewValidationError(field, "%s must be in YYYY-MM-DD format, got %v", field, v)
	}
	if _, err := domain.ParseDate(s); err != nil {
		return "", domain.NewValidationError(field, "%s must be in YYYY-MM-DD format, got %v", field, v)
	}
	return s, nil
}
