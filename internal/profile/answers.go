package profile

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cast"
)

// Questionnaire field names as submitted by the onboarding flow.
const (
	FieldPatientName           = "patientName"
	FieldEmail                 = "email"
	FieldPhone                 = "phone"
	FieldTreatmentFor          = "treatmentFor"
	FieldTreatmentReasons      = "treatmentReasons"
	FieldTreatmentReasonsOther = "treatmentReasonsOther"
	FieldMainReason            = "mainReason"
	FieldSymptomIntensity      = "symptomIntensity"
	FieldTimeLiving            = "timeLiving"
	FieldMedicationType        = "medicationType"
	FieldFormulation           = "formulation"
	FieldFrequency             = "frequency"
	FieldDoseType              = "doseType"
	FieldDoseAmount            = "doseAmount"
	FieldBiologicalSex         = "biologicalSex"
	FieldBirthDay              = "birthDay"
	FieldBirthMonth            = "birthMonth"
	FieldBirthYear             = "birthYear"
	FieldHeight                = "height"
	FieldWeight                = "weight"
	FieldActivityLevel         = "activityLevel"
	FieldPersonalMotivation    = "personalMotivation"
	FieldSideEffects           = "sideEffects"
	FieldReferralCode          = "referralCode"
)

// QuestionnaireAnswers is the loosely typed record collected across the
// onboarding steps. Any field may be absent, empty or of an unexpected type;
// the accessors below never fail and report absence as a zero value.
type QuestionnaireAnswers map[string]any

// String returns the trimmed text value of field, or "" when it is missing or
// cannot be read as text.
func (a QuestionnaireAnswers) String(field string) string {
	v, ok := a[field]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// Strings returns the non-blank entries of a list field. A single string is
// treated as a one-element list.
func (a QuestionnaireAnswers) Strings(field string) []string {
	v, ok := a[field]
	if !ok || v == nil {
		return []string{}
	}

	var raw []string
	switch t := v.(type) {
	case string:
		raw = []string{t}
	case []string:
		raw = t
	default:
		list, err := cast.ToStringSliceE(v)
		if err != nil {
			return []string{}
		}
		raw = list
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Number returns the numeric value of field. Text is accepted with either a
// dot or a comma as decimal separator. ok is false when the field is missing
// or not numeric.
func (a QuestionnaireAnswers) Number(field string) (float64, bool) {
	v, ok := a[field]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case bool:
		return 0, false
	case string:
		t = strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if t == "" {
			return 0, false
		}
		v = t
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (a QuestionnaireAnswers) stringOr(field, fallback string) string {
	if s := a.String(field); s != "" {
		return s
	}
	return fallback
}

// LeadingInt reads field as an integer, accepting text that starts with digits
// and ignoring whatever follows ("1990abc" is 1990).
func (a QuestionnaireAnswers) LeadingInt(field string) (int, bool) {
	if s, ok := a[field].(string); ok {
		s = strings.TrimSpace(s)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
		if end >= 0 {
			s = s[:end]
		}
		n, err := strconv.Atoi(s)
		return n, err == nil
	}
	f, ok := a.Number(field)
	if !ok {
		return 0, false
	}
	return int(f), true
}
