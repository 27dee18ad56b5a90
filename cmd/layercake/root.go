package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	cfgPath string

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4C9AFF")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D")).
			Italic(true)
)

const banner = `
 __                            __
|  |   ____ _____  ___________/  |_____
|  | _/ __ \\__  \/ __ \_  __ \   __\__ \
|  |_\  ___/ / __ \  ___/|  | \/|  |  / __ \_
|____/\___  >____  /\___  >__|   |__| (____  /
          \/     \/     \/                 \/
  ____        __
_/ ___\ _____  |  | __ ____
\  \___ /  _ \ |  |/ // __ \
 \___  (  <_> )    <\  ___/
/____  /\____/|__|_ \\___  >
     \/            \/    \/`

// skipBanner lists command paths that should not print the banner —
// scriptable or output-sensitive subcommands.
var skipBanner = map[string]bool{
	"version":      true,
	"config init":  true,
	"render":       true,
	"story render": true,
	"dag status":   true,
	"completion":   true,
}

func shouldSkipBanner(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("help") {
		return true
	}
	parts := []string{}
	for c := cmd; c != nil && c.Parent() != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return skipBanner[strings.Join(parts, " ")]
}

var rootCmd = &cobra.Command{
	Use:   "layercake",
	Short: "Layercake — graph data platform CLI",
	Long: bannerStyle.Render(banner) + "\n" + subtitleStyle.Render("  Ingest datasets, build graphs, and render artefacts.") + `

Available Commands:
  project     Manage Projects
  dataset     Ingest and manage Datasets
  plan        Manage Plan DAGs (nodes, edges)
  dag         Execute a Plan DAG and inspect status
  render      Render a GraphData to an artefact
  story       Manage Stories and Sequences
  config      View and manage CLI configuration`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !shouldSkipBanner(cmd) {
			fmt.Println(bannerStyle.Render(banner))
			fmt.Println(subtitleStyle.Render("  Ingest datasets, build graphs, and render artefacts."))
			fmt.Println()
		}
	},
}

// Execute runs the CLI, following the teacher-pack CLI convention of
// silencing cobra's default usage/error printing in favour of a single
// styled error line.
func Execute() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#DC3545")).Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to layercake.yaml (default: ./layercake.yaml)")
}
