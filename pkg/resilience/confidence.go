package resilience

// ComponentResult is the outcome of one independent sub-operation feeding a
// confidence-weighted aggregation, e.g. one enrichment source during alert
// analysis. The core never persists these; persistence belongs to the caller.
type ComponentResult struct {
	// Name identifies the component and selects its weight.
	Name string
	// Confidence is the component's self-reported confidence in [0, 1].
	Confidence float64
	// Degraded marks a result produced in degraded mode.
	Degraded bool
}

// Aggregate combines per-component confidences into one overall score using
// the weighted mean sum(confidence*weight)/sum(weight) over components present
// in both the result set and the weight table. Components missing from the
// weight table are excluded from both sums rather than silently zero-weighted.
// A zero weight sum yields 0.0, never a division by zero.
//
// Aggregate never fails: malformed or missing components degrade the score
// but never abort the caller's reconciliation. Summation makes the result
// order-independent.
func Aggregate(results []ComponentResult, weights map[string]float64) float64 {
	var weightedSum, weightSum float64
	for _, r := range results {
		w, ok := weights[r.Name]
		if !ok {
			continue
		}
		weightedSum += r.Confidence * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0.0
	}
	return weightedSum / weightSum
}

// AnyDegraded reports whether any component produced its result in degraded
// mode, for callers surfacing a degraded-but-usable outcome.
func AnyDegraded(results []ComponentResult) bool {
	for _, r := range results {
		if r.Degraded {
			return true
		}
	}
	return false
}
