// Package feature implements capability gating of scenes against the
// features a backend device reports.
package feature

import (
	"fmt"
)

// Flag is one reported capability.
type Flag struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Set is the ordered list of capability flags reported once per device
// session and reused for every instance of a run.
type Set []Flag

// IsSupported reports whether name is present and available. Unknown
// features are unsupported, never an error.
func IsSupported(set Set, name string) bool {
	for _, f := range set {
		if f.Name == name {
			return f.Available
		}
	}
	return false
}

// Missing returns the required features that set does not support, in
// the order they were required.
func Missing(set Set, required []string) []string {
	var missing []string
	for _, name := range required {
		if !IsSupported(set, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Gated is anything that declares required features.
type Gated interface {
	// RequiredFeatures returns the declared features and whether the
	// declaration was present at all.
	RequiredFeatures() ([]string, bool)
}

// Rejection explains why one item was skipped.
type Rejection[T any] struct {
	Item    T
	Reasons []string
}

// Filter splits items into those whose required features are all
// supported and those rejected, with one reason line per missing feature.
// Items without a requiredFeatures declaration are always accepted.
func Filter[T Gated](items []T, set Set) (accepted []T, rejected []Rejection[T]) {
	for _, item := range items {
		required, declared := item.RequiredFeatures()
		if !declared {
			accepted = append(accepted, item)
			continue
		}
		missing := Missing(set, required)
		if len(missing) == 0 {
			accepted = append(accepted, item)
			continue
		}
		reasons := make([]string, len(missing))
		for i, name := range missing {
			reasons[i] = fmt.Sprintf("Feature %s is not supported", name)
		}
		rejected = append(rejected, Rejection[T]{Item: item, Reasons: reasons})
	}
	return accepted, rejected
}
