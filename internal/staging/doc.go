// Package staging moves bytes between the three storage domains of a run.
//
// Transport copies the user's source into a per-run scratch directory, pushes
// that copy into the backend input area under a random key, fans completed
// outputs back out to the user's destination, and removes backend objects
// once a run is finished. CleanStale sweeps scratch directories left behind
// by crashed processes.
package staging
