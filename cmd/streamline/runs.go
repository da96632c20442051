package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"streamline/internal/api"
	"streamline/internal/orchestrator"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var states []string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List orchestration runs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := normalizeStates(states)
			if err != nil {
				return err
			}
			items, err := ctx.client().Runs(cmd.Context(), limit, filter...)
			if err != nil {
				return wrapDialError(err, ctx.apiAddress())
			}
			if wantJSON(cmd, ctx.outputFormat()) {
				return writeJSON(cmd, api.RunListResponse{Items: items})
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					dash(item.JobID),
					label(item.State),
					strconv.Itoa(len(item.Files)),
					strconv.Itoa(item.Failed),
					yesNo(item.CleanedUp),
					dash(item.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Job", "State", "Files", "Failed", "Cleaned", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of runs (0 lists all)")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Only runs in these states (repeatable)")
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

// normalizeStates lower-cases --state values and rejects ones the
// orchestrator never records.
func normalizeStates(states []string) ([]string, error) {
	known := make(map[string]struct{}, len(orchestrator.States()))
	for _, s := range orchestrator.States() {
		known[string(s)] = struct{}{}
	}
	out := make([]string, 0, len(states))
	for _, value := range states {
		value = strings.ToLower(strings.TrimSpace(value))
		if _, ok := known[value]; !ok {
			return nil, fmt.Errorf("unknown state %q (valid: %s)", value, joinStrings(orchestrator.States()))
		}
		out = append(out, value)
	}
	return out, nil
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and its state history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := ctx.client().Run(cmd.Context(), args[0])
			if err != nil {
				return wrapDialError(err, ctx.apiAddress())
			}
			if wantJSON(cmd, ctx.outputFormat()) {
				return writeJSON(cmd, detail)
			}

			out := cmd.OutOrStdout()
			run := detail.Run
			fmt.Fprintf(out, "Run:     %s\n", run.ID)
			fmt.Fprintf(out, "Job:     %s\n", dash(run.JobID))
			fmt.Fprintf(out, "State:   %s\n", label(run.State))
			if run.ErrorKind != "" || run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:   %s: %s\n", run.ErrorKind, run.ErrorMessage)
			}
			fmt.Fprintf(out, "Files:   %d copied, %d failed\n", len(run.Files), run.Failed)
			fmt.Fprintf(out, "Cleaned: %s\n", yesNo(run.CleanedUp))

			rows := make([][]string, 0, len(detail.Transitions))
			for _, tr := range detail.Transitions {
				rows = append(rows, []string{tr.At, label(tr.State), dash(tr.Detail)})
			}
			fmt.Fprintln(out, renderTable([]string{"At", "State", "Detail"}, rows, nil))
			return nil
		},
	}
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
