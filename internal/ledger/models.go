package ledger

import "time"

// Run is one orchestration run.
type Run struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id,omitempty"`
	State        string    `json:"state"`
	RequestJSON  string    `json:"request"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Files        []string  `json:"files,omitempty"`
	Failed       int       `json:"failed"`
	CleanedUp    bool      `json:"cleaned_up"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transition is one recorded state change of a run.
type Transition struct {
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}
