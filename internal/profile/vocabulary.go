package profile

import "strings"

// Condition is a canonical treatment reason. The goal and dashboard tables are
// keyed by it so both always cover the same set.
type Condition string

const (
	ConditionAnxiety     Condition = "Ansiedade"
	ConditionDepression  Condition = "Depressão"
	ConditionChronicPain Condition = "Dor crônica"
	ConditionInsomnia    Condition = "Insônia"
	ConditionEpilepsy    Condition = "Epilepsia"
	ConditionAutism      Condition = "Autismo"
	ConditionParkinson   Condition = "Parkinson"
	ConditionAlzheimer   Condition = "Alzheimer"
	ConditionCancer      Condition = "Câncer"
)

// DefaultTreatmentGoal is used when the first reason has no mapped goal.
const DefaultTreatmentGoal = "Melhorar qualidade de vida"

var treatmentGoals = map[Condition]string{
	ConditionAnxiety:     "Reduzir ansiedade e melhorar bem-estar emocional",
	ConditionDepression:  "Melhorar humor e qualidade de vida",
	ConditionChronicPain: "Aliviar dor e melhorar mobilidade",
	ConditionInsomnia:    "Melhorar qualidade do sono",
	ConditionEpilepsy:    "Reduzir frequência de crises",
	ConditionAutism:      "Melhorar comunicação e comportamento",
	ConditionParkinson:   "Controlar sintomas motores",
	ConditionAlzheimer:   "Preservar função cognitiva",
	ConditionCancer:      "Aliviar sintomas e efeitos colaterais",
}

var dashboardIndicators = map[Condition]string{
	ConditionAnxiety:     "Nível de Ansiedade",
	ConditionDepression:  "Humor",
	ConditionChronicPain: "Intensidade da Dor",
	ConditionInsomnia:    "Qualidade do Sono",
	ConditionEpilepsy:    "Frequência de Crises",
	ConditionAutism:      "Comportamento",
	ConditionParkinson:   "Sintomas Motores",
	ConditionAlzheimer:   "Função Cognitiva",
	ConditionCancer:      "Sintomas Gerais",
}

// conditionAliases maps lowercased option labels, including the longer labels
// used by earlier onboarding screens, onto the canonical condition.
var conditionAliases = map[string]Condition{
	"ansiedade":                      ConditionAnxiety,
	"depressão":                      ConditionDepression,
	"depressao":                      ConditionDepression,
	"dor crônica":                    ConditionChronicPain,
	"dor cronica":                    ConditionChronicPain,
	"dor":                            ConditionChronicPain,
	"insônia":                        ConditionInsomnia,
	"insonia":                        ConditionInsomnia,
	"insônia/distúrbios do sono":     ConditionInsomnia,
	"epilepsia":                      ConditionEpilepsy,
	"epilepsia/crises convulsivas":   ConditionEpilepsy,
	"autismo":                        ConditionAutism,
	"transtorno do espectro autista": ConditionAutism,
	"parkinson":                      ConditionParkinson,
	"alzheimer":                      ConditionAlzheimer,
	"câncer":                         ConditionCancer,
	"cancer":                         ConditionCancer,
}

// CanonicalCondition resolves a reason label to its canonical condition.
func CanonicalCondition(reason string) (Condition, bool) {
	c, ok := conditionAliases[strings.ToLower(strings.TrimSpace(reason))]
	return c, ok
}

// GoalFor returns the treatment goal sentence for reason. Unmapped reasons are
// returned unchanged with ok set to false.
func GoalFor(reason string) (goal string, ok bool) {
	if c, found := CanonicalCondition(reason); found {
		return treatmentGoals[c], true
	}
	return reason, false
}

// IndicatorFor returns the dashboard indicator label for reason, or reason
// itself when it is not a known condition.
func IndicatorFor(reason string) string {
	if c, found := CanonicalCondition(reason); found {
		return dashboardIndicators[c]
	}
	return reason
}

// Options lists the answer choices offered by the onboarding flow.
type Options struct {
	TreatmentReasons []string `json:"treatmentReasons"`
	MedicationTypes  []string `json:"medicationTypes"`
	Formulations     []string `json:"formulations"`
	Frequencies      []string `json:"frequencies"`
	DoseTypes        []string `json:"doseTypes"`
	ActivityLevels   []string `json:"activityLevels"`
	SideEffects      []string `json:"sideEffects"`
}

// QuestionnaireOptions returns a fresh copy of the canonical option lists.
func QuestionnaireOptions() Options {
	return Options{
		TreatmentReasons: []string{
			string(ConditionChronicPain), string(ConditionAnxiety), string(ConditionInsomnia),
			string(ConditionEpilepsy), string(ConditionDepression), string(ConditionAutism),
			string(ConditionParkinson), string(ConditionAlzheimer), string(ConditionCancer),
			"Espasticidade muscular", "Náuseas por quimioterapia",
			"Transtorno de Estresse Pós-Traumático", "Enxaqueca", "Outros",
		},
		MedicationTypes: []string{"Óleo", "Goma", "Vaporizado", "Gel", "Creme", "Fita", "Outro", DontKnow},
		Formulations: []string{
			"Full Spectrum", "Broad Spectrum", "CBD Isolado", "CBG Isolado",
			"CBN Isolado", "THC Isolado", "THC-V Isolado", "Outro",
		},
		Frequencies: []string{
			"Uma vez ao dia", "Duas vezes ao dia", "Três vezes ao dia",
			"Quatro vezes ao dia", "Cinco ou mais vezes ao dia",
			"Uma vez a cada 2 dias", "Uma vez a cada 3 dias", "Uma vez por semana",
			"Conforme necessário", "Ainda em adaptação",
		},
		DoseTypes: []string{"Gotas", "ml", "mg", "Gomas", "Pump", "Fita", "Outro"},
		ActivityLevels: []string{
			"Incapaz de realizar", "Temporariamente incapaz", "Sedentário",
			"Levemente ativo", "Moderadamente ativo", "Ativo", "Muito ativo",
		},
		SideEffects: []string{
			"Sonolência", "Boca seca", "Tontura", "Alterações cognitivas leves",
			"Ansiedade ou agitação", "Taquicardia", "Náusea",
			"Desconforto gastrointestinal", "Alteração de humor",
			"Queda de pressão", "Outro",
		},
	}
}
