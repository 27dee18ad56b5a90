package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var dagCmd = &cobra.Command{
	Use:   "dag",
	Short: "Execute a Plan DAG and inspect status",
}

var (
	dagProjectID string
	dagPlanID    string
)

var dagExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Execute every reachable node of a Plan DAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dagProjectID == "" || dagPlanID == "" {
			return fmt.Errorf("--project and --plan are required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		nodes, err := a.store.ListNodes(ctx, dagPlanID)
		if err != nil {
			return err
		}
		edges, err := a.store.ListEdges(ctx, dagPlanID)
		if err != nil {
			return err
		}

		executor := a.newExecutor()
		if err := executor.ExecuteDAG(ctx, dagProjectID, dagPlanID, nodes, edges); err != nil {
			return err
		}
		fmt.Println("plan executed")
		return nil
	},
}

var dagStatusPlanID string

// dagStatusCmd reports the Plan's persisted status (draft/executed/error).
// It reads store state rather than the Event Bus: the bus (internal/eventbus)
// is publish-only and fire-and-forget by design, so it has nothing durable
// to query from a later, separate CLI invocation.
var dagStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the persisted status of a Plan's last execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dagStatusPlanID == "" {
			return fmt.Errorf("--plan is required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.GetPlan(context.Background(), dagStatusPlanID)
		if err != nil {
			return err
		}
		fmt.Println(p.Status)
		return nil
	},
}

func init() {
	dagExecuteCmd.Flags().StringVar(&dagProjectID, "project", "", "Project id")
	dagExecuteCmd.Flags().StringVar(&dagPlanID, "plan", "", "Plan id")
	dagStatusCmd.Flags().StringVar(&dagStatusPlanID, "plan", "", "Plan id")

	dagCmd.AddCommand(dagExecuteCmd, dagStatusCmd)
	rootCmd.AddCommand(dagCmd)
}
