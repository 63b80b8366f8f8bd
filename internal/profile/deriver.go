package profile

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces profile identifiers. Uniqueness is probabilistic.
type IDGenerator interface {
	NewID(now time.Time) string
}

type randomIDGenerator struct{}

// NewID returns "profile_<unix millis>_<9 random hex chars>".
func (randomIDGenerator) NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("profile_%d_%s", now.UnixMilli(), suffix)
}

// Deriver turns questionnaire answers into a PatientProfile. It holds no
// mutable state and is safe for concurrent use.
type Deriver struct {
	now func() time.Time
	ids IDGenerator
}

type Option func(*Deriver)

func WithClock(now func() time.Time) Option {
	return func(d *Deriver) {
		if now != nil {
			d.now = now
		}
	}
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(d *Deriver) {
		if ids != nil {
			d.ids = ids
		}
	}
}

func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{
		now: time.Now,
		ids: randomIDGenerator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive builds the full profile. Missing or malformed answers fall back to
// placeholders and numeric defaults; it never fails.
func (d *Deriver) Derive(answers QuestionnaireAnswers) *PatientProfile {
	if answers == nil {
		answers = QuestionnaireAnswers{}
	}
	now := d.now()
	experience := AssessExperienceLevel(answers)

	return &PatientProfile{
		ID:              d.ids.NewID(now),
		CreatedAt:       now,
		MainCondition:   DeriveMainCondition(answers),
		TreatmentGoal:   DeriveTreatmentGoal(answers),
		UsageForm:       DeriveUsageForm(answers),
		TypicalSchedule: DeriveTypicalSchedule(answers),
		Sensitivity:     AssessSensitivity(answers),
		ExperienceLevel: experience,
		Demographics:    ExtractDemographics(answers, now),
		Personalization: DerivePersonalization(answers, experience),
	}
}

func DeriveMainCondition(answers QuestionnaireAnswers) MainCondition {
	reasons := answers.Strings(FieldTreatmentReasons)

	primary := answers.String(FieldMainReason)
	if primary == "" && len(reasons) > 0 {
		primary = reasons[0]
	}
	if primary == "" {
		primary = Unspecified
	}

	secondary := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r != primary {
			secondary = append(secondary, r)
		}
	}

	intensity := DefaultIntensity
	if v, ok := answers.Number(FieldSymptomIntensity); ok && v >= 1 && v <= 10 {
		intensity = int(math.Round(v))
	}

	return MainCondition{
		Primary:   primary,
		Secondary: secondary,
		Intensity: intensity,
		Duration:  answers.stringOr(FieldTimeLiving, Unspecified),
	}
}

func DeriveTreatmentGoal(answers QuestionnaireAnswers) TreatmentGoal {
	reasons := answers.Strings(FieldTreatmentReasons)

	primary := DefaultTreatmentGoal
	if len(reasons) > 0 {
		if goal, ok := GoalFor(reasons[0]); ok {
			primary = goal
		}
	}

	expectations := make([]string, 0, len(reasons))
	for _, r := range reasons {
		goal, _ := GoalFor(r)
		expectations = append(expectations, goal)
	}

	return TreatmentGoal{
		Primary:      primary,
		Motivation:   answers.String(FieldPersonalMotivation),
		Expectations: expectations,
	}
}

func DeriveUsageForm(answers QuestionnaireAnswers) UsageForm {
	return UsageForm{
		MedicationType: answers.stringOr(FieldMedicationType, Unspecified),
		Formulation:    answers.stringOr(FieldFormulation, Unspecified),
		DoseType:       answers.stringOr(FieldDoseType, Unspecified),
		CurrentDose:    answers.stringOr(FieldDoseAmount, Unspecified),
	}
}

// DeriveTypicalSchedule buckets the free-text frequency by plain substring
// matching. It is intentionally shallow: unknown phrasings yield a regular
// schedule with no preferred times.
func DeriveTypicalSchedule(answers QuestionnaireAnswers) TypicalSchedule {
	frequency := answers.stringOr(FieldFrequency, Unspecified)
	text := strings.ToLower(frequency)

	schedule := TypicalSchedule{
		Frequency:      frequency,
		PreferredTimes: []string{},
		Consistency:    ConsistencyRegular,
	}

	switch {
	case containsAny(text, "1x", "uma vez"):
		schedule.PreferredTimes = []string{TimeEvening}
	case containsAny(text, "2x", "duas vezes"):
		schedule.PreferredTimes = []string{TimeMorning, TimeEvening}
	case containsAny(text, "3x", "três vezes"):
		schedule.PreferredTimes = []string{TimeMorning, TimeAfternoon, TimeEvening}
	case containsAny(text, "necessário", "preciso"):
		schedule.Consistency = ConsistencyAsNeeded
		schedule.PreferredTimes = []string{TimeAsNeeded}
	}
	return schedule
}

func AssessSensitivity(answers QuestionnaireAnswers) Sensitivity {
	effects := answers.Strings(FieldSideEffects)

	tolerance := ToleranceMedium
	switch {
	case len(effects) == 0:
		tolerance = ToleranceHigh
	case len(effects) >= lowToleranceEffects:
		tolerance = ToleranceLow
	}

	return Sensitivity{
		SideEffects: effects,
		Tolerance:   tolerance,
		Reactions:   cloneStrings(effects),
	}
}

func AssessExperienceLevel(answers QuestionnaireAnswers) ExperienceLevel {
	knowsType := named(answers.String(FieldMedicationType))
	knowsDose := named(answers.String(FieldDoseAmount))

	score := BaseKnowledgeScore
	level := LevelBeginner
	if knowsType {
		score += knowledgeSignalWeight
		level = LevelIntermediate
	}
	if knowsDose {
		score += knowledgeSignalWeight
		level = LevelIntermediate
	}
	if score >= experiencedThreshold {
		level = LevelExperienced
	}

	return ExperienceLevel{
		Level:          level,
		PreviousUse:    knowsType,
		KnowledgeScore: score,
	}
}

// ExtractDemographics computes age against now's calendar year. An unreadable
// birth year counts as the current year, giving age 0.
func ExtractDemographics(answers QuestionnaireAnswers, now time.Time) Demographics {
	year := now.Year()
	birthYear := year
	if v, ok := answers.LeadingInt(FieldBirthYear); ok && v >= 1 {
		birthYear = v
	}
	age := year - birthYear
	if age < 0 {
		age = 0
	}

	return Demographics{
		Age:           age,
		BiologicalSex: answers.stringOr(FieldBiologicalSex, Unspecified),
		Height:        positiveNumber(answers, FieldHeight),
		Weight:        positiveNumber(answers, FieldWeight),
		ActivityLevel: answers.stringOr(FieldActivityLevel, Unspecified),
	}
}

func DerivePersonalization(answers QuestionnaireAnswers, experience ExperienceLevel) Personalization {
	style := StyleCasual
	if experience.Level == LevelExperienced {
		style = StyleTechnical
	}

	frequency := strings.ToLower(answers.String(FieldFrequency))
	notify := NotifyModerate
	switch {
	case containsAny(frequency, "3x", "mais"):
		notify = NotifyFrequent
	case strings.Contains(frequency, "necessário"):
		notify = NotifyMinimal
	}

	reasons := answers.Strings(FieldTreatmentReasons)
	if len(reasons) > maxDashboardItems {
		reasons = reasons[:maxDashboardItems]
	}
	priorities := make([]string, 0, len(reasons))
	for _, r := range reasons {
		priorities = append(priorities, IndicatorFor(r))
	}

	return Personalization{
		PreferredLanguageStyle: style,
		NotificationPreference: notify,
		DashboardPriorities:    priorities,
	}
}

func named(answer string) bool {
	return answer != "" && !strings.EqualFold(answer, DontKnow)
}

func positiveNumber(answers QuestionnaireAnswers, field string) float64 {
	if v, ok := answers.Number(field); ok && v > 0 {
		return v
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
