package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mykana/wellness/internal/checkin"
	"github.com/mykana/wellness/internal/dose"
)

var ErrInvalidPeriod = errors.New("invalid report period")

type Period string

const (
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodCustom Period = "custom"
)

// Range is a half-open interval [Start, End) of whole days.
type Range struct {
	Period Period    `json:"period"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Days is the number of calendar days the range covers.
func (r Range) Days() int {
	return int(math.Round(r.End.Sub(r.Start).Hours() / 24))
}

// ParsePeriod resolves a period name and, for custom periods, inclusive
// YYYY-MM-DD bounds. Week and month end with now's day.
func ParsePeriod(period, start, end string, now time.Time) (Range, error) {
	loc := now.Location()
	y, m, d := now.Date()
	tomorrow := time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	switch Period(period) {
	case PeriodWeek, "":
		return Range{Period: PeriodWeek, Start: tomorrow.AddDate(0, 0, -7), End: tomorrow}, nil
	case PeriodMonth:
		return Range{Period: PeriodMonth, Start: tomorrow.AddDate(0, 0, -30), End: tomorrow}, nil
	case PeriodCustom:
		from, err := time.ParseInLocation(time.DateOnly, start, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: start must be YYYY-MM-DD", ErrInvalidPeriod)
		}
		to, err := time.ParseInLocation(time.DateOnly, end, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: end must be YYYY-MM-DD", ErrInvalidPeriod)
		}
		if to.Before(from) {
			return Range{}, fmt.Errorf("%w: start is after end", ErrInvalidPeriod)
		}
		return Range{Period: PeriodCustom, Start: from, End: to.AddDate(0, 0, 1)}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
}

type Averages struct {
	Pain    float64 `json:"pain"`
	Anxiety float64 `json:"anxiety"`
	Sleep   float64 `json:"sleep"`
	Mood    float64 `json:"mood"`
}

type DoseEntry struct {
	Date   string  `json:"date"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Time   string  `json:"time"`
}

type Report struct {
	Range            Range       `json:"range"`
	Averages         Averages    `json:"averages"`
	Doses            []DoseEntry `json:"doses"`
	CheckIns         int         `json:"checkIns"`
	DaysWithCheckIns int         `json:"daysWithCheckIns"`
	Observations     int         `json:"observations"`
	SideEffectDays   int         `json:"sideEffectDays"`
}

// Build aggregates check-ins and doses already restricted to r. Averages are
// rounded to one decimal and are zero when there are no check-ins.
func Build(r Range, checkins []*checkin.CheckIn, doses []*dose.Dose) *Report {
	loc := r.Start.Location()
	rep := &Report{
		Range:    r,
		Doses:    make([]DoseEntry, 0, len(doses)),
		CheckIns: len(checkins),
	}

	days := map[string]struct{}{}
	sideEffectDays := map[string]struct{}{}
	var sum Averages
	for _, c := range checkins {
		day := c.RecordedAt.In(loc).Format(time.DateOnly)
		days[day] = struct{}{}
		if c.SideEffects {
			sideEffectDays[day] = struct{}{}
		}
		if c.Observations != "" {
			rep.Observations++
		}
		sum.Pain += float64(c.Pain)
		sum.Anxiety += float64(c.Anxiety)
		sum.Sleep += float64(c.Sleep)
		sum.Mood += float64(c.Mood)
	}
	rep.DaysWithCheckIns = len(days)
	rep.SideEffectDays = len(sideEffectDays)

	if n := float64(len(checkins)); n > 0 {
		rep.Averages = Averages{
			Pain:    round1(sum.Pain / n),
			Anxiety: round1(sum.Anxiety / n),
			Sleep:   round1(sum.Sleep / n),
			Mood:    round1(sum.Mood / n),
		}
	}

	for _, d := range doses {
		rep.Doses = append(rep.Doses, DoseEntry{
			Date:   d.TakenAt.In(loc).Format("02/01/2006"),
			Type:   d.Form(),
			Amount: d.Quantity,
			Time:   d.Time,
		})
	}
	return rep
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type CheckInLister interface {
	List(ctx context.Context, patientID string, from, to time.Time) ([]*checkin.CheckIn, error)
}

type DoseLister interface {
	List(ctx context.Context, patientID string, from, to time.Time) ([]*dose.Dose, error)
}

type Service interface {
	Generate(ctx context.Context, patientID string, r Range) (*Report, error)
}

type service struct {
	checkins CheckInLister
	doses    DoseLister
}

func NewService(checkins CheckInLister, doses DoseLister) Service {
	return &service{checkins: checkins, doses: doses}
}

func (s *service) Generate(ctx context.Context, patientID string, r Range) (*Report, error) {
	checkins, err := s.checkins.List(ctx, patientID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	doses, err := s.doses.List(ctx, patientID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list doses: %w", err)
	}
	return Build(r, checkins, doses), nil
}
