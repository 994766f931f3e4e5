package report

import "time"

// AccountResult captures the terminal outcome of one account's workflow.
// Account is always the masked identifier.
type AccountResult struct {
	Index      int           `json:"index"`
	Account    string        `json:"account"`
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Lines      []string      `json:"lines,omitempty"`
	Phase      string        `json:"phase"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// FleetResult aggregates account results for one run.
type FleetResult struct {
	Service    string        `json:"service"`
	Mode       string        `json:"mode"`
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Success    bool          `json:"success"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Aggregate computes the fleet result. An empty fleet is not a success.
func Aggregate(service, mode string, results []AccountResult, elapsed time.Duration) FleetResult {
	fleet := FleetResult{
		Service:    service,
		Mode:       mode,
		Total:      len(results),
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
	}
	for _, r := range results {
		if r.Success {
			fleet.Succeeded++
		} else {
			fleet.Failed++
		}
	}
	fleet.Success = fleet.Total > 0 && fleet.Failed == 0
	return fleet
}
