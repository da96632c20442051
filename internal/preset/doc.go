// Package preset holds the closed catalog of backend encoding presets and the
// rules that turn requested (target, quality) pairs into concrete outputs and
// playlists.
//
// Everything here is pure: lookups are table driven and nothing performs I/O.
// Targets, qualities and families are tagged enums; strings only appear at
// the edges through Parse* and the text marshalers.
package preset
