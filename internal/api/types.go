package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RunItem describes an orchestration run in a transport-friendly format.
type RunItem struct {
	ID           string   `json:"id"`
	JobID        string   `json:"jobId,omitempty"`
	State        string   `json:"state"`
	ErrorKind    string   `json:"errorKind,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	Files        []string `json:"files,omitempty"`
	Failed       int      `json:"failed"`
	CleanedUp    bool     `json:"cleanedUp"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

// RunTransition is one entry of a run's state history.
type RunTransition struct {
	State  string `json:"state"`
	Detail string `json:"detail,omitempty"`
	At     string `json:"at"`
}

// RunListResponse wraps a collection of runs.
type RunListResponse struct {
	Items []RunItem `json:"items"`
}

// RunDetailResponse is a run plus its transitions.
type RunDetailResponse struct {
	Run         RunItem         `json:"run"`
	Transitions []RunTransition `json:"transitions"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}
