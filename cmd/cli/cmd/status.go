package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/owid/owid-grapher-sub039/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [slug]",
	Short: "Get the refresh status of an explorer",
	Long:  `Retrieve an explorer's publish state and whether its views are current (clean), waiting for a refresh (queued) or being refreshed (processing).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		explorer, err := newClient().GetExplorer(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
				return
			}
			cmd.Printf("Failed to send request: %v\n", err)
			return
		}

		printStatus(cmd, *explorer)
	},
}

func printStatus(cmd *cobra.Command, e api.ExplorerResponse) {
	// Header with status icon
	icon := statusIcon(e.ViewsRefreshStatus)
	cmd.Printf("%s %sExplorer Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sSlug:%s        %s\n", colorDim, colorReset, e.Slug)
	if e.Title != "" {
		cmd.Printf("%sTitle:%s       %s\n", colorDim, colorReset, e.Title)
	}

	published := colorDim + "no" + colorReset
	if e.IsPublished {
		published = colorGreen + "yes" + colorReset
	}
	cmd.Printf("%sPublished:%s   %s\n", colorDim, colorReset, published)

	cmd.Printf("%sViews:%s       %s\n", colorDim, colorReset, colorizeStatus(e.ViewsRefreshStatus))

	if e.LastCommitMessage != "" {
		cmd.Printf("%sCommit:%s      %s\n", colorDim, colorReset, e.LastCommitMessage)
	}

	cmd.Printf("%sUpdated:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(&e.UpdatedAt))
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// statusIcon covers both explorer refresh statuses and job states.
func statusIcon(status string) string {
	switch status {
	case "clean", "done":
		return colorGreen + "✓" + colorReset
	case "failed":
		return colorRed + "✗" + colorReset
	case "processing":
		return colorYellow + "⏳" + colorReset
	case "queued":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "clean", "done":
		return icon + " " + colorGreen + status + colorReset
	case "failed":
		return icon + " " + colorRed + status + colorReset
	case "processing":
		return icon + " " + colorYellow + status + colorReset
	case "queued":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
