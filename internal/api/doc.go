// Package api is the HTTP surface of the daemon. It translates requests into
// orchestrator submissions and status reads, and ledger rows into
// transport-friendly DTOs.
//
// # Routes
//
//	POST /streaming        submit a streaming request
//	GET  /streaming/{id}   status view of a backend job
//	GET  /runs             recent orchestration runs (?state=, ?limit=)
//	GET  /runs/{id}        one run with its state history
//	GET  /healthz          liveness
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Errors are returned as {"error", "kind"} with
// the status code derived from the error marker: 400 invalid request, 412
// precondition failed, 502 staging failure, 404 not found, 500 otherwise.
// Every response carries an X-Request-ID header which is also attached to the
// request context and therefore to the orchestrator's log lines.
package api
