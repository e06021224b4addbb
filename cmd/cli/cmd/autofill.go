package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/owid/owid-grapher-sub039/internal/datasource"
	"github.com/owid/owid-grapher-sub039/internal/explorer"
)

var autofillCmd = &cobra.Command{
	Use:   "autofill [file] [table_slug]",
	Short: "Add missing column definitions for a table",
	Long: `Read the data file named by the table row from the bucket and add a column
definition for every column the program does not declare yet. The result is printed,
or written back to file with --write.`,
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, tableSlug := args[0], args[1]
		write, _ := cmd.Flags().GetBool("write")

		bucketURL, _ := cmd.Flags().GetString("bucket")
		if bucketURL == "" {
			bucketURL = viper.GetString("bucket")
		}
		if bucketURL == "" {
			return errors.New("no data source bucket. Set it using the --bucket flag or the EXPLORERS_BUCKET environment variable")
		}
		if write && path == "-" {
			return errors.New("--write needs a file, not stdin")
		}

		tsv, err := readProgram(cmd, path)
		if err != nil {
			return err
		}

		catalog, err := datasource.OpenBlobCatalog(cmd.Context(), bucketURL)
		if err != nil {
			return err
		}
		defer catalog.Close()

		filled, err := explorer.New(slugFromPath(path), tsv).AutofillMissingColumnDefinitionsForTable(cmd.Context(), catalog, tableSlug)
		if err != nil {
			return err
		}

		if !write {
			cmd.Println(filled.String())
			return nil
		}
		if err := os.WriteFile(path, []byte(filled.String()+"\n"), 0o644); err != nil {
			return err
		}
		cmd.Printf("%s Updated %s\n", statusIcon("clean"), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(autofillCmd)

	autofillCmd.Flags().String("bucket", "", "Bucket URL holding the data files (file://, s3://, gs://)")
	autofillCmd.Flags().BoolP("write", "w", false, "Write the result back to file")
}
