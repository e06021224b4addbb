package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/owid/owid-grapher-sub039/pkg/api"
)

var viewsCmd = &cobra.Command{
	Use:   "views [slug]",
	Short: "List the materialized views of an explorer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		views, err := newClient().ListViews(args[0])
		if err != nil {
			cmd.Printf("Error fetching views: %s\n", err)
			return
		}

		switch output {
		case "json":
			out, _ := json.MarshalIndent(views, "", "  ")
			cmd.Println(string(out))
		case "yaml":
			out, err := yaml.Marshal(views)
			if err != nil {
				cmd.Printf("Failed to encode views: %v\n", err)
				return
			}
			cmd.Print(string(out))
		case "table":
			if len(views) == 0 {
				cmd.Println("No views found.")
				return
			}
			printViewsTable(cmd, views)
		default:
			cmd.Printf("Unknown output format %q (use table, json or yaml)\n", output)
		}
	},
}

func printViewsTable(cmd *cobra.Command, views []api.ViewResponse) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "VIEW ID\tDIMENSIONS\tCHART CONFIG")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.ViewID, formatDimensions(v.Dimensions), v.ChartConfigID)
	}
	w.Flush()
}

// formatDimensions renders dimensions as key=value pairs ordered by key.
func formatDimensions(dims map[string]string) string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + dims[k]
	}
	return strings.Join(pairs, ",")
}

func init() {
	rootCmd.AddCommand(viewsCmd)

	viewsCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml")
}
