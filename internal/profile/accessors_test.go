package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGreeting(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelBeginner, "Olá! Vamos começar seu acompanhamento para dor crônica."},
		{LevelIntermediate, "Bem-vindo de volta! Continue acompanhando seu tratamento para dor crônica."},
		{LevelExperienced, "Olá! Seu acompanhamento detalhado de dor crônica está pronto."},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			p := &PatientProfile{
				MainCondition:   MainCondition{Primary: "Dor crônica"},
				ExperienceLevel: ExperienceLevel{Level: tt.level},
			}
			assert.Equal(t, tt.want, Greeting(p))
		})
	}
}

func TestAccessorsReturnFieldsVerbatim(t *testing.T) {
	p := newTestDeriver().Derive(QuestionnaireAnswers{
		"treatmentReasons": []string{"Ansiedade", "Depressão"},
		"frequency":        "2x ao dia",
	})

	assert.Equal(t, p.Personalization.DashboardPriorities, DashboardPriorities(p))
	assert.Equal(t, []string{"Nível de Ansiedade", "Humor"}, DashboardPriorities(p))
	assert.Equal(t, []string{TimeMorning, TimeEvening}, NotificationTimes(p))
	assert.Equal(t, "Use linguagem amigável e acessível", LanguageStyleHint(p))
}

func TestAccessorsNilProfile(t *testing.T) {
	assert.Empty(t, Greeting(nil))
	assert.Nil(t, DashboardPriorities(nil))
	assert.Nil(t, NotificationTimes(nil))
	assert.Empty(t, LanguageStyleHint(nil))
}

func TestCanonicalConditionCoversBothTables(t *testing.T) {
	for alias, c := range conditionAliases {
		_, hasGoal := treatmentGoals[c]
		_, hasIndicator := dashboardIndicators[c]
		assert.True(t, hasGoal, "alias %q has no goal", alias)
		assert.True(t, hasIndicator, "alias %q has no indicator", alias)
	}
	assert.Len(t, treatmentGoals, 9)
	assert.Len(t, dashboardIndicators, 9)
}

func TestQuestionnaireOptionsResolve(t *testing.T) {
	opts := QuestionnaireOptions()
	mapped := 0
	for _, reason := range opts.TreatmentReasons {
		if _, ok := CanonicalCondition(reason); ok {
			mapped++
		}
	}
	assert.Equal(t, 9, mapped)

	opts.TreatmentReasons[0] = "changed"
	assert.Equal(t, string(ConditionChronicPain), QuestionnaireOptions().TreatmentReasons[0])
}
