package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/p2pclaw/hive/fsm"
	"github.com/p2pclaw/hive/lib"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

/* This file implements the commands that work without a running node */

var scoreCmd = &cobra.Command{
	Use:   "score <markdown_file>",
	Short: "score the structure of a paper locally, without submitting it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		content, err := os.ReadFile(args[0])
		if err != nil {
			l.Fatal(err.Error())
		}
		printScore(fsm.ScorePaper(config.ConsensusConfig, string(content)))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the configuration in the data directory",
	Run: func(cmd *cobra.Command, args []string) {
		writeToConsole(config, nil)
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "overwrite the configuration in the data directory with the defaults",
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(config.DataDirPath, lib.ConfigFilePath)
		c := lib.DefaultConfig()
		c.DataDirPath = config.DataDirPath
		if err := c.WriteToFile(path); err != nil {
			l.Fatal(err.Error())
		}
		writeToConsole(fmt.Sprintf("Wrote default configuration to %s", path), nil)
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)
}

// printScore() writes a human readable score breakdown
func printScore(s fsm.OccamScore) {
	p := message.NewPrinter(language.English)
	verdict := "VALID"
	if !s.Valid {
		verdict = "INVALID"
	}
	_, _ = p.Printf("Score: %.1f%% (%s)\n", s.Score*100, verdict)
	_, _ = p.Printf("  sections   %5.1f\n", s.Sections)
	_, _ = p.Printf("  words      %5.1f  (%d words)\n", s.Words, s.WordCount)
	_, _ = p.Printf("  references %5.1f  (%d references)\n", s.References, s.RefCount)
	_, _ = p.Printf("  coherence  %5.1f\n", s.Coherence)
	if len(s.Missing) != 0 {
		_, _ = p.Printf("  missing    %v\n", s.Missing)
	}
}
