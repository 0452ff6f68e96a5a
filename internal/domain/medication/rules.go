package medication

// Companion pairs a drug with the drug it is usually co-prescribed with.
type Companion struct {
	Drug      string `mapstructure:"drug" json:"drug"`
	Companion string `mapstructure:"companion" json:"companion"`
}

// Rules drives the extractor. Tables come from the versioned rule set; an
// empty Companions slice disables companion augmentation.
type Rules struct {
	StopWords      []string    `mapstructure:"stop_words" json:"stop_words"`
	MinTokenLength int         `mapstructure:"min_token_length" json:"min_token_length"`
	Companions     []Companion `mapstructure:"companions" json:"companions"`
}

// DefaultRules returns the tables used by the clinician dashboard.
func DefaultRules() Rules {
	return Rules{
		StopWords: []string{
			"take", "daily", "twice", "dose", "tablet", "capsule",
			"with", "food", "water", "before", "after", "meals",
		},
		MinTokenLength: 4,
		Companions: []Companion{
			{Drug: "Lisinopril", Companion: "Hydrochlorothiazide"},
			{Drug: "Metformin", Companion: "Glipizide"},
		},
	}
}
