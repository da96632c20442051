package orchestrator

// SetCleanupHook registers fn to run after each run's cleanup.
func (o *Orchestrator) SetCleanupHook(fn func(runID string)) {
	o.afterCleanup = fn
}
