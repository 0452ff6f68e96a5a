package risk

// System names scored by default.
const (
	Cardiovascular = "Cardiovascular"
	Respiratory    = "Respiratory"
	Endocrine      = "Endocrine"
	Renal          = "Renal"
)

// Score adjustments.
const (
	BaseScore         = 55
	DiabeticBaseScore = 75
	HighBonus         = 15
	MediumBonus       = 8
	SystemBaseScore   = 50
	KeywordBonus      = 30
	DrugBonus         = 10
	MaxScore          = 95
)

const (
	FamilyHistoryOfDiabetes = "Family history of diabetes"
	NoSignificantHistory    = "No significant medical history recorded"
	historyPrefix           = "History of "
)

// SystemRule lists the history keywords and drugs that raise an organ
// system's score.
type SystemRule struct {
	Name     string   `mapstructure:"name" json:"name"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
	Drugs    []string `mapstructure:"drugs" json:"drugs"`
}

// Rules holds the replaceable tables of the scorer.
type Rules struct {
	// DiabetesTerms raise the overall base score and add the family history
	// factor. The match is substring, so "diabet" covers "diabetic".
	DiabetesTerms []string `mapstructure:"diabetes_terms" json:"diabetes_terms"`
	// HistoryMarkers suppress the "History of" prefix on a factor.
	HistoryMarkers []string     `mapstructure:"history_markers" json:"history_markers"`
	Systems        []SystemRule `mapstructure:"systems" json:"systems"`
}

func DefaultRules() Rules {
	return Rules{
		DiabetesTerms:  []string{"diabet"},
		HistoryMarkers: []string{"history", "past", "chronic"},
		Systems: []SystemRule{
			{
				Name:     Cardiovascular,
				Keywords: []string{"hypertension", "heart", "cholesterol", "stroke"},
				Drugs:    []string{"lisinopril", "metoprolol", "atenolol", "amlodipine", "atorvastatin"},
			},
			{
				Name:     Respiratory,
				Keywords: []string{"asthma", "copd", "pneumonia", "lung"},
				Drugs:    []string{"albuterol", "fluticasone", "montelukast", "tiotropium"},
			},
			{
				Name:     Endocrine,
				Keywords: []string{"diabetes", "thyroid", "hormonal", "metabolic"},
				Drugs:    []string{"metformin", "insulin", "levothyroxine", "glipizide"},
			},
			{
				Name:     Renal,
				Keywords: []string{"kidney", "renal", "bladder", "urinary"},
				Drugs:    []string{"furosemide", "hydrochlorothiazide", "spironolactone"},
			},
		},
	}
}
