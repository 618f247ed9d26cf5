// Package main provides the entry point for the firstglance CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/firstglance/cmd/firstglance/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "firstglance",
		Short: "Rank the files of a Git repository by co-change centrality",
		Long: `firstglance reads the commit history of a Git repository, builds the graph
of files that change together and ranks every file by how often it lies on
the shortest path between two others. Read the top of the list first.

Commands:
  rank      Rank the files of a repository
  mcp       Serve the ranking to AI agents over MCP
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRankCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
