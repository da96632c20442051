// Package ledger persists orchestration runs in SQLite.
//
// A run row is created when a request is accepted for processing and follows
// the run through its states: the backend job id once known, the
// redistribution result, the failure that ended it, and whether cleanup ran.
// Every state change is also appended to run_transitions so operators can
// see how far a run progressed.
//
// The schema is versioned; a database written by an incompatible version is
// rejected with ErrSchemaMismatch rather than migrated.
package ledger
