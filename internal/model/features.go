package model

// Feature names snapshotted after every clickstream action.
const (
	// FeatureInnerText counts words in the page's visible text.
	FeatureInnerText = "innerText"

	// FeatureLinks counts anchor target URLs.
	FeatureLinks = "links"

	// FeatureImages counts image source URLs.
	FeatureImages = "img"
)

// FeatureNames lists every snapshotted feature in a stable order.
var FeatureNames = []string{FeatureInnerText, FeatureLinks, FeatureImages}

// Frequency is a value -> occurrence-count table for one feature at one
// point in time.
type Frequency map[string]int

// FeatureSnapshot accumulates per-phase feature frequencies for one page or
// clickstream. The outer key is the feature name, the inner key a phase name
// (baseline, control, experimental), and the slice index the action number
// the snapshot was taken after.
//
// The layout matches the features.json artifact consumed by the offline
// comparator, so the session engine appends and the comparator indexes.
type FeatureSnapshot map[string]map[string][]Frequency

// NewFeatureSnapshot returns an empty snapshot covering every feature.
func NewFeatureSnapshot() FeatureSnapshot {
	snapshot := make(FeatureSnapshot, len(FeatureNames))
	for _, feature := range FeatureNames {
		snapshot[feature] = make(map[string][]Frequency)
	}
	return snapshot
}

// Append records one feature's frequency table for a phase.
// Snapshots for a phase accumulate in action order.
func (s FeatureSnapshot) Append(feature, phase string, freq Frequency) {
	phases, ok := s[feature]
	if !ok {
		phases = make(map[string][]Frequency)
		s[feature] = phases
	}
	phases[phase] = append(phases[phase], freq)
}
