package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanchunk/internal/output"
	"github.com/Aman-CERP/amanchunk/pkg/chunk"
)

// languageRow is the JSON shape of one registered language.
type languageRow struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	Extensions []string `json:"extensions"`
}

func newLanguagesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List languages understood by the code strategy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := languageRows()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			color, _ := output.UseColor(output.ColorAuto, cmd.OutOrStdout())
			out := output.NewWithColor(cmd.OutOrStdout(), color)
			table := make([][2]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, [2]string{r.Name, describeLanguage(r)})
			}
			out.Table(table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func languageRows() []languageRow {
	names := chunk.Languages()
	rows := make([]languageRow, 0, len(names))
	for _, name := range names {
		lc, ok := chunk.LookupLanguage(name)
		if !ok {
			continue
		}
		rows = append(rows, languageRow{
			Name:       lc.Name,
			Aliases:    nonNil(lc.Aliases),
			Extensions: nonNil(lc.Extensions),
		})
	}
	return rows
}

func describeLanguage(r languageRow) string {
	parts := make([]string, 0, 2)
	if len(r.Extensions) > 0 {
		parts = append(parts, strings.Join(r.Extensions, " "))
	}
	if len(r.Aliases) > 0 {
		parts = append(parts, "(aliases: "+strings.Join(r.Aliases, ", ")+")")
	}
	if len(parts) == 0 {
		return "fallback for unrecognized input"
	}
	return strings.Join(parts, "  ")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
