package models

// RelayRequest describes one client's interest in a running simulation:
// where to poll for its status and which credential to poll with. One
// instance per relay invocation, never shared.
type RelayRequest struct {
	StatusURL string `json:"status_url" query:"status_url" validate:"required,url"`
	AuthToken string `json:"auth_token" validate:"required"`
}

// Simulation status values the upstream reports. The enumeration is open:
// anything other than COMPLETE and ERROR means the job is still running.
const (
	StatusComplete = "COMPLETE"
	StatusError    = "ERROR"
)

// SimulationStatus is the decoded body of one status poll. Transient,
// discarded after classification.
type SimulationStatus struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Alpha    string  `json:"alpha"`
	Message  string  `json:"message"`
}

// InProgress reports whether the status is non-terminal.
func (s *SimulationStatus) InProgress() bool {
	return s.Status != StatusComplete && s.Status != StatusError
}

// AlphaMetrics carries the in-sample metrics of a finished alpha, fetched
// from the enrichment endpoint. Fields absent upstream default to zero.
type AlphaMetrics struct {
	Fitness  float64 `json:"fitness"`
	Sharpe   float64 `json:"sharpe"`
	Turnover float64 `json:"turnover"`
}
