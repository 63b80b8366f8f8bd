package profile

import "time"

// Unspecified is the placeholder used for any missing free-text answer.
const Unspecified = "Não especificado"

// DontKnow is the answer patients pick when they cannot name a medication or dose.
const DontKnow = "Não sei"

const (
	DefaultIntensity      = 5
	BaseKnowledgeScore    = 3
	knowledgeSignalWeight = 2
	experiencedThreshold  = 7
	maxDashboardItems     = 3
	lowToleranceEffects   = 3
)

type Tolerance string

const (
	ToleranceLow    Tolerance = "low"
	ToleranceMedium Tolerance = "medium"
	ToleranceHigh   Tolerance = "high"
)

type Consistency string

const (
	ConsistencyRegular   Consistency = "regular"
	ConsistencyIrregular Consistency = "irregular"
	ConsistencyAsNeeded  Consistency = "as-needed"
)

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelExperienced  Level = "experienced"
)

type LanguageStyle string

const (
	StyleFormal    LanguageStyle = "formal"
	StyleCasual    LanguageStyle = "casual"
	StyleTechnical LanguageStyle = "technical"
)

type NotificationPreference string

const (
	NotifyFrequent NotificationPreference = "frequent"
	NotifyModerate NotificationPreference = "moderate"
	NotifyMinimal  NotificationPreference = "minimal"
)

// Time-of-day buckets shown to the patient.
const (
	TimeMorning   = "Manhã"
	TimeAfternoon = "Tarde"
	TimeEvening   = "Noite"
	TimeAsNeeded  = "Conforme necessário"
)

type MainCondition struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary"`
	Intensity int      `json:"intensity"` // 1-10
	Duration  string   `json:"duration"`
}

type TreatmentGoal struct {
	Primary      string   `json:"primary"`
	Motivation   string   `json:"motivation"`
	Expectations []string `json:"expectations"`
}

type UsageForm struct {
	MedicationType string `json:"medicationType"`
	Formulation    string `json:"formulation"`
	DoseType       string `json:"doseType"`
	CurrentDose    string `json:"currentDose"`
}

type TypicalSchedule struct {
	Frequency      string      `json:"frequency"`
	PreferredTimes []string    `json:"preferredTimes"`
	Consistency    Consistency `json:"consistency"`
}

type Sensitivity struct {
	SideEffects []string  `json:"sideEffects"`
	Tolerance   Tolerance `json:"tolerance"`
	Reactions   []string  `json:"reactions"`
}

type ExperienceLevel struct {
	Level          Level `json:"level"`
	PreviousUse    bool  `json:"previousUse"`
	KnowledgeScore int   `json:"knowledgeScore"`
}

type Demographics struct {
	Age           int     `json:"age"`
	BiologicalSex string  `json:"biologicalSex"`
	Height        float64 `json:"height"`
	Weight        float64 `json:"weight"`
	ActivityLevel string  `json:"activityLevel"`
}

type Personalization struct {
	PreferredLanguageStyle LanguageStyle          `json:"preferredLanguageStyle"`
	NotificationPreference NotificationPreference `json:"notificationPreference"`
	DashboardPriorities    []string               `json:"dashboardPriorities"`
}

// PatientProfile is derived once from a completed questionnaire and never
// merged; a new completion replaces the stored profile.
type PatientProfile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	MainCondition   MainCondition   `json:"mainCondition"`
	TreatmentGoal   TreatmentGoal   `json:"treatmentGoal"`
	UsageForm       UsageForm       `json:"usageForm"`
	TypicalSchedule TypicalSchedule `json:"typicalSchedule"`
	Sensitivity     Sensitivity     `json:"sensitivity"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel"`
	Demographics    Demographics    `json:"demographics"`
	Personalization Personalization `json:"personalization"`
}

// Clone returns a deep copy so cached profiles cannot be mutated by callers.
func (p *PatientProfile) Clone() *PatientProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.MainCondition.Secondary = cloneStrings(p.MainCondition.Secondary)
	c.TreatmentGoal.Expectations = cloneStrings(p.TreatmentGoal.Expectations)
	c.TypicalSchedule.PreferredTimes = cloneStrings(p.TypicalSchedule.PreferredTimes)
	c.Sensitivity.SideEffects = cloneStrings(p.Sensitivity.SideEffects)
	c.Sensitivity.Reactions = cloneStrings(p.Sensitivity.Reactions)
	c.Personalization.DashboardPriorities = cloneStrings(p.Personalization.DashboardPriorities)
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
