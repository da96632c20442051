// Package orchestrator drives a streaming request end to end.
//
// Submit validates the request, confirms the destination container exists,
// stages the source into the backend input area, picks the first active
// pipeline and submits the job. It returns as soon as the backend accepted
// the job. A detached run then waits for the job, copies its outputs to the
// destination and cleans up. Cleanup runs exactly once per accepted request,
// whatever stage the run reached; failures after submission are logged and
// recorded against the run instead of being returned.
//
// Shutdown cancels in-flight waits. Cancelled runs remove their scratch
// directory but leave backend objects alone because the backend job still
// owns them.
package orchestrator
