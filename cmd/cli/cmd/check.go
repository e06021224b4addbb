package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/slug"
	"github.com/owid/owid-grapher-sub039/internal/views"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate an explorer program locally",
	Long: `Parse the program and report every structural problem without contacting the
controller. A valid program prints its dimensions and the number of views a refresh
would materialize.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		tsv, err := readProgram(cmd, args[0])
		if err != nil {
			return err
		}

		p := explorer.New(slugFromPath(args[0]), tsv)
		if err := p.Validate(); err != nil {
			cmd.Printf("%s %s\n", statusIcon("failed"), err)
			return err
		}

		title := p.Title()
		if title == "" {
			title = p.Slug()
		}
		cmd.Printf("%s %s%s%s is valid\n", statusIcon("clean"), colorBold, title, colorReset)

		dims := p.Dimensions()
		for _, d := range dims {
			cmd.Printf("  %s (%s): %s\n", d.Name, d.Control, strings.Join(d.ChoiceSlugs(), ", "))
		}
		for _, table := range p.TableSlugs() {
			cmd.Printf("  table %s: %d declared columns\n", table, len(p.DeclaredColumns(table)))
		}
		cmd.Printf("%sViews:%s %d\n", colorDim, colorReset, views.Count(dims))
		return nil
	},
}

// slugFromPath derives an explorer slug from a program file name.
func slugFromPath(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return slug.Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
