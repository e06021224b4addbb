package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/owid/owid-grapher-sub039/pkg/api"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List view refresh jobs",
	Long:  `List refresh jobs, newest first. Failed jobs keep the error that stopped them.`,
	Run: func(cmd *cobra.Command, args []string) {
		slug, _ := cmd.Flags().GetString("slug")
		state, _ := cmd.Flags().GetString("state")
		limit, _ := cmd.Flags().GetInt("limit")

		client := newClient()
		if client.Token == "" {
			cmd.Println(tokenMissing)
			return
		}

		jobs, err := client.ListJobs(slug, state, limit)
		if err != nil {
			cmd.Printf("Error fetching jobs: %s\n", err)
			return
		}
		if len(jobs) == 0 {
			cmd.Println("No jobs found.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tEXPLORER\tSTATE\tCREATED\tTOOK\tERROR")
		for _, j := range jobs {
			took := "-"
			if j.State == "done" || j.State == "failed" {
				took = formatDuration(j.UpdatedAt.Sub(j.CreatedAt))
			}
			errMsg := ""
			if j.Error != nil {
				// Truncate long error messages for the table view
				errMsg = *j.Error
				if len(errMsg) > 50 {
					errMsg = errMsg[:47] + "..."
				}
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				j.ID,
				jobSlug(j),
				j.State,
				j.CreatedAt.Format(time.RFC3339),
				took,
				errMsg,
			)
		}
		w.Flush()
	},
}

func jobSlug(j api.JobResponse) string {
	var payload struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(j.Payload, &payload); err != nil || payload.Slug == "" {
		return "-"
	}
	return payload.Slug
}

func init() {
	rootCmd.AddCommand(jobsCmd)

	jobsCmd.Flags().String("slug", "", "Only jobs for this explorer")
	jobsCmd.Flags().String("state", "", "Only jobs in this state (queued, processing, done, failed)")
	jobsCmd.Flags().IntP("limit", "l", 20, "Maximum number of jobs to list")
}
