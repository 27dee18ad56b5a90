package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and manage CLI configuration",
}

var configInitOutPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default layercake.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().Save(configInitOutPath); err != nil {
			return err
		}
		fmt.Println(configInitOutPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitOutPath, "out", "layercake.yaml", "output path")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
