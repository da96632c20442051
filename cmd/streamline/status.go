package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"streamline/internal/jobstatus"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a transcoding job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.client().Status(cmd.Context(), args[0])
			if err != nil {
				return wrapDialError(err, ctx.apiAddress())
			}
			return renderView(cmd, ctx.outputFormat(), view)
		},
	}
}

func renderView(cmd *cobra.Command, format string, view jobstatus.View) error {
	if wantJSON(cmd, format) {
		return writeJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:         %s\n", view.ID)
	fmt.Fprintf(out, "Status:      %s\n", label(view.Status.String()))
	if view.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", view.ErrorMessage)
	}
	fmt.Fprintf(out, "Destination: %s/%s\n", view.Service, view.Container)
	fmt.Fprintf(out, "Targets:     %s\n", joinStrings(view.Targets))
	fmt.Fprintf(out, "Qualities:   %s\n", joinStrings(view.Qualities))
	fmt.Fprintf(out, "Thumbnails:  %s\n", yesNo(view.Thumbnail))

	if len(view.Outputs) > 0 {
		rows := make([][]string, 0, len(view.Outputs))
		for _, o := range view.Outputs {
			thumb := o.Thumbnail
			if thumb == "" {
				thumb = "-"
			}
			rows = append(rows, []string{o.Target.String(), o.Playlist, thumb})
		}
		fmt.Fprintln(out, renderTable([]string{"Target", "Playlist", "Thumbnail"}, rows, nil))
	}

	if run := view.Redistribution; run != nil {
		fmt.Fprintf(out, "Run:         %s (%s)\n", run.RunID, label(run.State))
		fmt.Fprintf(out, "Files:       %d copied, %d failed\n", len(run.Files), run.Failed)
		fmt.Fprintf(out, "Cleaned up:  %s\n", yesNo(run.CleanedUp))
		if run.Error != "" {
			fmt.Fprintf(out, "Run error:   %s\n", run.Error)
		}
	}
	return nil
}

func joinStrings[T fmt.Stringer](values []T) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
