// Package services defines shared utilities consumed by the orchestration
// stages and the HTTP surface.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, backend job IDs, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (invalid request, precondition, staging, backend job,
//     redistribution, cleanup) intact across package boundaries.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
