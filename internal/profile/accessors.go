package profile

import (
	"fmt"
	"strings"
)

var greetingTemplates = map[Level]string{
	LevelBeginner:     "Olá! Vamos começar seu acompanhamento para %s.",
	LevelIntermediate: "Bem-vindo de volta! Continue acompanhando seu tratamento para %s.",
	LevelExperienced:  "Olá! Seu acompanhamento detalhado de %s está pronto.",
}

var languageStyleHints = map[LanguageStyle]string{
	StyleFormal:    "Use linguagem profissional e técnica",
	StyleCasual:    "Use linguagem amigável e acessível",
	StyleTechnical: "Use termos técnicos e detalhes científicos",
}

// Greeting picks the welcome sentence for the patient's experience level.
func Greeting(p *PatientProfile) string {
	if p == nil {
		return ""
	}
	tmpl, ok := greetingTemplates[p.ExperienceLevel.Level]
	if !ok {
		tmpl = greetingTemplates[LevelExperienced]
	}
	return fmt.Sprintf(tmpl, strings.ToLower(p.MainCondition.Primary))
}

func DashboardPriorities(p *PatientProfile) []string {
	if p == nil {
		return nil
	}
	return p.Personalization.DashboardPriorities
}

func NotificationTimes(p *PatientProfile) []string {
	if p == nil {
		return nil
	}
	return p.TypicalSchedule.PreferredTimes
}

// LanguageStyleHint returns the copywriting instruction for the profile's
// preferred language style.
func LanguageStyleHint(p *PatientProfile) string {
	if p == nil {
		return ""
	}
	return languageStyleHints[p.Personalization.PreferredLanguageStyle]
}
