// Package fileutil holds small filesystem helpers shared by the local object
// store and the scratch staging area.
package fileutil
