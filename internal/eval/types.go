package eval

// #region eval-config
// EvalConfig holds thresholds for snapshot validation.
type EvalConfig struct {
	MinLeafCoverage    float32 // fail if fewer covered schema leaves are present
	MinKindConsistency float32 // fail if fewer state leaves match their declared datatype
}

// DefaultEvalConfig requires every state leaf to match its schema leaf and
// treats coverage as informational, since dataset size legitimately lowers it.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MinLeafCoverage:    0.0,
		MinKindConsistency: 1.0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float32
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of snapshot validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric returns the named metric.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
