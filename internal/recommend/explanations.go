package recommend

// FallbackExplanation is used for any crop without a dedicated note.
const FallbackExplanation = "Suitable based on current conditions."

// ExplanationTable maps a crop label to a short agronomic note.
type ExplanationTable map[string]string

var defaultExplanations = ExplanationTable{
	"Maize":          "Thrives in warm temperatures (22-30°C) and moderate-high rainfall. Best in well-drained loamy soils.",
	"Beans":          "Fast-growing legume. Loves First season and fertile loam soils.",
	"Cassava":        "Drought-tolerant. Excellent for Sandy soils and lower rainfall periods.",
	"Sweet Potatoes": "Grows well in Sandy soils with moderate rain.",
	"Bananas":        "Perennial crop. Prefers consistent moisture and loamy soils.",
	"Coffee":         "Requires moderate temperatures and well-distributed rain.",
	"Pineapple":      "Thrives in warmer conditions and Sandy soils.",
	"Groundnuts":     "Good in loamy soils with adequate rainfall.",
}

// DefaultExplanations returns a copy of the built-in Luwero notes.
func DefaultExplanations() ExplanationTable {
	out := make(ExplanationTable, len(defaultExplanations))
	for k, v := range defaultExplanations {
		out[k] = v
	}
	return out
}

// Explain looks up crop by exact, case-sensitive label.
func (t ExplanationTable) Explain(crop string) string {
	if text, ok := t[crop]; ok {
		return text
	}
	return FallbackExplanation
}
