package cli

import (
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the hive rpc",
}

var limit = 0

func init() {
	queryCmd.PersistentFlags().IntVar(&limit, "limit", 0, "maximum number of papers in a listing, 0 is the node default")
	queryCmd.AddCommand(paperCmd)
	queryCmd.AddCommand(mempoolCmd)
	queryCmd.AddCommand(verifiedCmd)
	queryCmd.AddCommand(rankCmd)
	queryCmd.AddCommand(agentCmd)
	queryCmd.AddCommand(nodeVersionCmd)
}

var (
	paperCmd = &cobra.Command{
		Use:   "paper <paper_id>",
		Short: "query a paper by id",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Paper(args[0]))
		},
	}

	mempoolCmd = &cobra.Command{
		Use:   "mempool --limit=10",
		Short: "query the papers awaiting validation",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Mempool(limit))
		},
	}

	verifiedCmd = &cobra.Command{
		Use:   "verified --limit=10",
		Short: "query the verified papers",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Verified(limit))
		},
	}

	rankCmd = &cobra.Command{
		Use:   "rank <agent_id>",
		Short: "query the rank of an agent",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Rank(args[0]))
		},
	}

	agentCmd = &cobra.Command{
		Use:   "agent <agent_id>",
		Short: "query the profile of an agent",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Agent(args[0]))
		},
	}

	nodeVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "query the software version of the node",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Version())
		},
	}
)
