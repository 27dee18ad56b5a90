package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/model"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage Projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new Project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		p := &model.Project{ID: uuid.NewString(), Name: args[0], CreatedAt: now, UpdatedAt: now}
		if err := a.store.CreateProject(context.Background(), p); err != nil {
			return err
		}
		fmt.Println(p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.store.ListProjects(context.Background())
		if err != nil {
			return err
		}
		for _, p := range projects {
			fmt.Printf("%s\t%s\n", p.ID, p.Name)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a Project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.store.DeleteProject(context.Background(), args[0])
	},
}

func init() {
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
