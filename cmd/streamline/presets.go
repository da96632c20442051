package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamline/internal/preset"
)

type presetRow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Family string `json:"family"`
	Kind   string `json:"kind"`
	Key    string `json:"key"`
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var targets []string
	var qualities []string

	cmd := &cobra.Command{
		Use:         "presets",
		Short:       "List encoding presets, or resolve the set a request would use",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := selectPresets(targets, qualities)
			if err != nil {
				return err
			}

			rows := make([]presetRow, 0, len(infos))
			for _, info := range infos {
				kind := "video"
				if info.Audio {
					kind = "audio"
				}
				rows = append(rows, presetRow{
					ID:     string(info.ID),
					Name:   info.Name,
					Family: info.Family.String(),
					Kind:   kind,
					Key:    info.Key,
				})
			}

			if wantJSON(cmd, ctx.outputFormat()) {
				return writeJSON(cmd, rows)
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.ID, r.Name, label(r.Family), r.Kind, r.Key})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Preset", "Name", "Family", "Kind", "Key"}, table, nil))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&targets, "target", nil, "Resolve for these targets")
	cmd.Flags().StringSliceVar(&qualities, "quality", nil, "Resolve for these qualities")
	return cmd
}

// selectPresets returns the whole catalog when no filter is given.
func selectPresets(targetValues, qualityValues []string) ([]preset.Info, error) {
	if len(targetValues) == 0 && len(qualityValues) == 0 {
		return preset.All(), nil
	}

	targets := preset.Targets()
	if len(targetValues) > 0 {
		targets = targets[:0:0]
		for _, value := range targetValues {
			t, err := preset.ParseTarget(value)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
	}
	qualities := preset.Qualities()
	if len(qualityValues) > 0 {
		qualities = qualities[:0:0]
		for _, value := range qualityValues {
			q, err := preset.ParseQuality(value)
			if err != nil {
				return nil, err
			}
			qualities = append(qualities, q)
		}
	}

	ids := preset.ResolvePresets(targets, qualities)
	infos := make([]preset.Info, 0, len(ids))
	for _, id := range ids {
		if info, ok := preset.Lookup(id); ok {
			infos = append(infos, info)
		}
	}
	return infos, nil
}
