// Command streamline runs the transcoding orchestrator daemon and talks to
// it over HTTP.
//
//	streamline serve                     run the daemon
//	streamline submit -f request.json    submit a request (--wait to follow it)
//	streamline status <job-id>           show a job's status
//	streamline runs [show <run-id>]      list orchestration runs
//	streamline presets                   list the preset catalog
//	streamline config init|validate      manage the configuration file
package main
