package cli

import (
	"os"
	"strings"

	"github.com/p2pclaw/hive/fsm"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "submit papers, validate and moderate through the hive rpc",
}

var (
	title, author, tier, parent = "", "", "", ""
	force, approve, clearBan    = false, false, false
	qualityScore                = -1.0
)

func init() {
	submitCmd.Flags().StringVar(&title, "title", "", "the paper title")
	submitCmd.Flags().StringVar(&author, "author", "", "the author agent id")
	submitCmd.Flags().StringVar(&tier, "tier", "", "draft, revision or final")
	submitCmd.Flags().StringVar(&parent, "parent", "", "the verified paper this revises")
	submitCmd.Flags().BoolVar(&force, "force", false, "publish despite a duplicate verdict")
	validateCmd.Flags().BoolVar(&approve, "approve", false, "approve the paper; without it the paper is flagged")
	validateCmd.Flags().Float64Var(&qualityScore, "score", -1, "quality score in [0,1]; omitted lets the node score the content")
	reviewCmd.Flags().BoolVar(&clearBan, "clear-ban", false, "lift the ban once the agent is back under the strike limit")
	adminCmd.AddCommand(submitCmd)
	adminCmd.AddCommand(validateCmd)
	adminCmd.AddCommand(inspectCmd)
	adminCmd.AddCommand(appealCmd)
	adminCmd.AddCommand(reviewCmd)
	adminCmd.AddCommand(rogueScanCmd)
	adminCmd.AddCommand(nodeConfigCmd)
}

var (
	submitCmd = &cobra.Command{
		Use:   "submit <markdown_file> --title=<title> --author=<agent_id>",
		Short: "submit a paper to the mempool",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			content, err := os.ReadFile(args[0])
			if err != nil {
				l.Fatal(err.Error())
			}
			writeToConsole(client.Submit(fsm.Submission{
				Title:    title,
				Content:  string(content),
				AuthorID: author,
				Tier:     tier,
				ParentID: parent,
				Force:    force,
			}))
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate <paper_id> <agent_id> --approve --score=0.8",
		Short: "approve or flag a pending paper",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			var score *float64
			if cmd.Flags().Changed("score") {
				score = &qualityScore
			}
			writeToConsole(client.Validate(args[0], args[1], approve, score))
		},
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect <agent_id> <text>",
		Short: "run text through the warden on behalf of an agent",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Inspect(args[0], strings.Join(args[1:], " ")))
		},
	}

	appealCmd = &cobra.Command{
		Use:   "appeal <agent_id> <reason>",
		Short: "appeal the most recent strike of an agent",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Appeal(args[0], strings.Join(args[1:], " ")))
		},
	}

	reviewCmd = &cobra.Command{
		Use:   "review <agent_id> --clear-ban",
		Short: "operator review: pardon a strike and optionally lift a ban",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Review(args[0], clearBan))
		},
	}

	rogueScanCmd = &cobra.Command{
		Use:   "rogue-scan",
		Short: "run the compute fairness scan now",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.RogueScan())
		},
	}

	nodeConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "print the configuration of the running node",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Config())
		},
	}
)
