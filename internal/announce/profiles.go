package announce

// Profile is a voice/delivery configuration handed to the synthesis
// collaborator alongside the announcement text. Values are tuned for a noisy
// kitchen: lower pitch and higher volume than conversational defaults.
type Profile struct {
	Name         string  `json:"name"`
	LanguageCode string  `json:"language_code"`
	VoiceName    string  `json:"voice_name"`
	Gender       string  `json:"gender"`
	Rate         float64 `json:"rate"`
	Pitch        float64 `json:"pitch"`
	Volume       float64 `json:"volume"`
	Emphasis     string  `json:"emphasis"`
}

var profiles = map[Rule]Profile{
	RuleStandard: {
		Name:         "standard",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Wavenet-D",
		Gender:       "FEMALE",
		Rate:         0.9,
		Pitch:        -2,
		Volume:       2,
		Emphasis:     "moderate",
	},
	RuleUrgent: {
		Name:         "urgent",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Wavenet-B",
		Gender:       "MALE",
		Rate:         1.1,
		Pitch:        2,
		Volume:       4,
		Emphasis:     "strong",
	},
	RuleBusy: {
		Name:         "busy_kitchen",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Wavenet-D",
		Gender:       "FEMALE",
		Rate:         0.8,
		Pitch:        -1,
		Volume:       6,
		Emphasis:     "strong",
	},
	RuleQuiet: {
		Name:         "quiet_hours",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Wavenet-F",
		Gender:       "FEMALE",
		Rate:         0.85,
		Pitch:        -3,
		Volume:       1,
		Emphasis:     "reduced",
	},
	RuleLarge: {
		Name:         "large_order",
		LanguageCode: "en-US",
		VoiceName:    "en-US-Wavenet-D",
		Gender:       "FEMALE",
		Rate:         0.75,
		Pitch:        -2,
		Volume:       3,
		Emphasis:     "moderate",
	},
}

// ProfileFor returns the delivery profile for a rule bucket.
func ProfileFor(rule Rule) Profile {
	if p, ok := profiles[rule]; ok {
		return p
	}
	return profiles[RuleStandard]
}
