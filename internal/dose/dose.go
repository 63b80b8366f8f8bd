package dose

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var ErrInvalidDose = errors.New("invalid dose")

const (
	UsageOther = "Outro"

	// DefaultDailyDoses applies when the patient has no medication configured.
	DefaultDailyDoses = 2

	clockLayout = "15:04"
)

var (
	UsageForms  = []string{"Gotas", "ml", "mg", "Gomas", "Pump", "Fita", UsageOther}
	Frequencies = []string{
		"Uma vez ao dia",
		"Duas vezes ao dia",
		"Três vezes ao dia",
		"Quatro vezes ao dia",
		"Conforme necessário",
	}
)

// Dose is one logged intake.
type Dose struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"-"`
	UsageForm       string    `json:"usageForm"`
	CustomUsageForm string    `json:"customUsageForm,omitempty"`
	Quantity        float64   `json:"quantity"`
	Frequency       string    `json:"frequency"`
	Time            string    `json:"time"`
	Observation     string    `json:"observation"`
	TakenAt         time.Time `json:"takenAt"`
}

// Form returns the usage form to display, resolving "Outro" to the custom text.
func (d *Dose) Form() string {
	if d.UsageForm == UsageOther {
		return d.CustomUsageForm
	}
	return d.UsageForm
}

func (d *Dose) Normalize() {
	d.UsageForm = strings.TrimSpace(d.UsageForm)
	d.CustomUsageForm = strings.TrimSpace(d.CustomUsageForm)
	d.Frequency = strings.TrimSpace(d.Frequency)
	d.Time = strings.TrimSpace(d.Time)
	d.Observation = strings.TrimSpace(d.Observation)
	if d.UsageForm != UsageOther {
		d.CustomUsageForm = ""
	}
}

func (d *Dose) Validate() error {
	if !slices.Contains(UsageForms, d.UsageForm) {
		return fmt.Errorf("%w: unknown usage form %q", ErrInvalidDose, d.UsageForm)
	}
	if d.UsageForm == UsageOther && d.CustomUsageForm == "" {
		return fmt.Errorf("%w: custom usage form is required", ErrInvalidDose)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidDose)
	}
	if !slices.Contains(Frequencies, d.Frequency) {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidDose, d.Frequency)
	}
	if _, err := time.Parse(clockLayout, d.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalidDose)
	}
	return nil
}

// DailyProgress is the share of configured doses completed, in percent,
// capped at 100.
func DailyProgress(completed, configured int) float64 {
	if configured <= 0 || completed <= 0 {
		return 0
	}
	if completed >= configured {
		return 100
	}
	return float64(completed) / float64(configured) * 100
}

type DayProgress struct {
	Date       string  `json:"date"`
	Weekday    string  `json:"weekday"`
	Doses      int     `json:"doses"`
	Percentage float64 `json:"percentage"`
	Completed  bool    `json:"completed"`
}

type Streak struct {
	Days  []DayProgress `json:"days"`
	Today DayProgress   `json:"today"`
	// Count is the run of completed days ending today, or ending yesterday
	// while today is still in progress.
	Count int `json:"count"`
}

var weekdayInitials = [7]string{"D", "S", "T", "Q", "Q", "S", "S"}

// WeekStreak summarizes the seven days ending on now's day, oldest first.
// Doses are bucketed by their TakenAt day in now's location.
func WeekStreak(doses []*Dose, configured int, now time.Time) Streak {
	perDay := make(map[string]int, len(doses))
	for _, d := range doses {
		perDay[d.TakenAt.In(now.Location()).Format(time.DateOnly)]++
	}

	y, m, dd := now.Date()
	today := time.Date(y, m, dd, 0, 0, 0, 0, now.Location())

	days := make([]DayProgress, 0, 7)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		key := day.Format(time.DateOnly)
		count := perDay[key]
		pct := DailyProgress(count, configured)
		days = append(days, DayProgress{
			Date:       key,
			Weekday:    weekdayInitials[day.Weekday()],
			Doses:      count,
			Percentage: pct,
			Completed:  pct >= 100,
		})
	}

	streak := Streak{Days: days, Today: days[len(days)-1]}
	i := len(days) - 1
	if !days[i].Completed {
		i--
	}
	for ; i >= 0 && days[i].Completed; i-- {
		streak.Count++
	}
	return streak
}
