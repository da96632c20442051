package api

import (
	"time"

	"streamline/internal/ledger"
)

// FromRun converts a ledger row into its DTO.
func FromRun(run *ledger.Run) RunItem {
	if run == nil {
		return RunItem{}
	}
	return RunItem{
		ID:           run.ID,
		JobID:        run.JobID,
		State:        run.State,
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		Files:        run.Files,
		Failed:       run.Failed,
		CleanedUp:    run.CleanedUp,
		CreatedAt:    formatTime(run.CreatedAt),
		UpdatedAt:    formatTime(run.UpdatedAt),
	}
}

// FromRuns converts rows preserving order. Nil entries are skipped.
func FromRuns(runs []*ledger.Run) []RunItem {
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		if run == nil {
			continue
		}
		out = append(out, FromRun(run))
	}
	return out
}

// FromTransitions converts a run's state history.
func FromTransitions(history []ledger.Transition) []RunTransition {
	out := make([]RunTransition, 0, len(history))
	for _, tr := range history {
		out = append(out, RunTransition{State: tr.State, Detail: tr.Detail, At: formatTime(tr.At)})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
