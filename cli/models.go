package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type modelEntry struct {
	Name    string   `json:"name"`
	Default bool     `json:"default"`
	Type    string   `json:"type"`
	Version string   `json:"version"`
	Scheme  string   `json:"scheme"`
	Columns []string `json:"columns"`
	Rules   []string `json:"rules,omitempty"`
}

func newModelsCmd(root *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured deployments and their input columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, registry, err := root.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			defer registry.Close()

			var entries []modelEntry
			for _, d := range registry.List() {
				info := d.Info()
				entries = append(entries, modelEntry{
					Name:    d.Name(),
					Default: d.Name() == registry.DefaultName(),
					Type:    info.Type,
					Version: info.Version,
					Scheme:  string(info.Scheme),
					Columns: info.Columns,
					Rules:   d.Rules(),
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tVERSION\tSCHEME\tCOLUMNS")
			for _, e := range entries {
				name := e.Name
				if e.Default {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, e.Type, e.Version, e.Scheme, strings.Join(e.Columns, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
