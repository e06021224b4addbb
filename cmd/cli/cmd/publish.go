package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/owid/owid-grapher-sub039/pkg/api"
)

const tokenMissing = "API token not found. Please set it using the --token flag or the EXPLORERS_TOKEN environment variable"

var publishCmd = &cobra.Command{
	Use:   "publish [slug] [file]",
	Short: "Publish an explorer program",
	Long: `Store the program read from file (or stdin when file is "-") as the explorer's
current version. Published explorers get a view refresh scheduled when the program
changed or the previous refresh did not finish.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		slug, path := args[0], args[1]
		message, _ := cmd.Flags().GetString("message")

		client := newClient()
		if client.Token == "" {
			cmd.Println(tokenMissing)
			return
		}

		tsv, err := readProgram(cmd, path)
		if err != nil {
			cmd.Printf("Failed to read program: %v\n", err)
			return
		}

		resp, err := client.Publish(slug, api.PublishRequest{TSV: tsv, CommitMessage: message})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
				return
			}
			cmd.Printf("Request failed: %v\n", err)
			return
		}

		cmd.Printf("%s Published %s\n", statusIcon("clean"), slug)
		cmd.Printf("%sViews:%s       %s\n", colorDim, colorReset, colorizeStatus(resp.Status))
		if resp.JobID != "" {
			cmd.Printf("%sRefresh job:%s %s\n", colorDim, colorReset, resp.JobID)
		}
	},
}

// readProgram reads path, or the command's stdin for "-".
func readProgram(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s is empty", path)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringP("message", "m", "", "Commit message stored with the program")
}
