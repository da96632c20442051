// Package daemon coordinates the long-running streamline process.
//
// It owns the single-instance flock, sweeps scratch directories left behind
// by crashes, serves the HTTP API and, on shutdown, drains the orchestrator so
// in-flight runs still remove their scratch data. Component construction
// lives in daemonrun; the daemon only manages lifecycle.
package daemon
