package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/layercake/layercake/internal/model"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage Plan DAGs",
}

var planProjectID string

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new Plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		if planProjectID == "" {
			return fmt.Errorf("--project is required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		p := &model.Plan{ID: uuid.NewString(), ProjectID: planProjectID, Version: 1, Status: model.PlanDraft, CreatedAt: now, UpdatedAt: now}
		if err := a.store.CreatePlan(context.Background(), p); err != nil {
			return err
		}
		fmt.Println(p.ID)
		return nil
	},
}

var (
	nodePlanID  string
	nodeType    string
	nodeDataset string
	nodeLabel   string
)

var planAddNodeCmd = &cobra.Command{
	Use:   "add-node",
	Short: "Add a node to a Plan DAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		if nodePlanID == "" {
			return fmt.Errorf("--plan is required")
		}
		kind := model.PlanDagNodeType(nodeType)
		cfg := model.NodeConfig{Kind: kind}
		switch kind {
		case model.NodeTypeDataSet:
			cfg.DataSet = &model.DataSetNodeConfig{DatasetID: nodeDataset}
		case model.NodeTypeGraph:
			cfg.Graph = &model.GraphNodeConfig{}
		case model.NodeTypeMerge:
			cfg.Merge = &model.GraphNodeConfig{}
		default:
			return fmt.Errorf("unsupported --type %q for add-node (use plan update with a plan file for other node kinds)", nodeType)
		}

		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		n := &model.PlanDagNode{
			ID:        uuid.NewString(),
			PlanID:    nodePlanID,
			NodeType:  kind,
			Metadata:  model.NodeMetadata{Label: nodeLabel},
			Config:    cfg,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.store.CreateNode(context.Background(), n); err != nil {
			return err
		}
		fmt.Println(n.ID)
		return nil
	},
}

var (
	edgePlanID string
	edgeSource string
	edgeTarget string
)

var planAddEdgeCmd = &cobra.Command{
	Use:   "add-edge",
	Short: "Add an edge between two Plan DAG nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if edgePlanID == "" || edgeSource == "" || edgeTarget == "" {
			return fmt.Errorf("--plan, --source, and --target are required")
		}
		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		now := time.Now().UTC()
		e := &model.PlanDagEdge{
			ID:           uuid.NewString(),
			PlanID:       edgePlanID,
			SourceNodeID: edgeSource,
			TargetNodeID: edgeTarget,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := a.store.CreateEdge(context.Background(), e); err != nil {
			return err
		}
		fmt.Println(e.ID)
		return nil
	},
}

// planDagDocument is the on-disk shape a "plan update" file decodes into:
// the complete replacement node/edge set for one Plan. Plan/PlanDagNode/
// PlanDagEdge carry no json tags elsewhere in the model package, so this
// follows the same convention and decodes against their Go field names.
type planDagDocument struct {
	Nodes []*model.PlanDagNode
	Edges []*model.PlanDagEdge
}

var (
	updatePlanID string
	updateUserID string
)

var planUpdateCmd = &cobra.Command{
	Use:   "update <file>",
	Short: "Atomically replace a Plan DAG's entire node and edge set (update_plan_dag)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if updatePlanID == "" {
			return fmt.Errorf("--plan is required")
		}
		path := args[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		var doc planDagDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		a, err := newApp(cfgPath)
		if err != nil {
			return err
		}
		defer a.Close()

		plan, err := a.newPlanService().UpdatePlanDag(context.Background(), updatePlanID, updateUserID, doc.Nodes, doc.Edges)
		if err != nil {
			return err
		}
		fmt.Printf("plan %s now at version %d\n", plan.ID, plan.Version)
		return nil
	},
}

func init() {
	planCreateCmd.Flags().StringVar(&planProjectID, "project", "", "Project id")

	planAddNodeCmd.Flags().StringVar(&nodePlanID, "plan", "", "Plan id")
	planAddNodeCmd.Flags().StringVar(&nodeType, "type", string(model.NodeTypeDataSet), "node type (DataSetNode|GraphNode|MergeNode)")
	planAddNodeCmd.Flags().StringVar(&nodeDataset, "dataset", "", "Dataset id (for --type DataSetNode)")
	planAddNodeCmd.Flags().StringVar(&nodeLabel, "label", "", "node label")

	planAddEdgeCmd.Flags().StringVar(&edgePlanID, "plan", "", "Plan id")
	planAddEdgeCmd.Flags().StringVar(&edgeSource, "source", "", "source node id")
	planAddEdgeCmd.Flags().StringVar(&edgeTarget, "target", "", "target node id")

	planUpdateCmd.Flags().StringVar(&updatePlanID, "plan", "", "Plan id")
	planUpdateCmd.Flags().StringVar(&updateUserID, "user", "", "id of the user making the change, recorded on the delta event")

	planCmd.AddCommand(planCreateCmd, planAddNodeCmd, planAddEdgeCmd, planUpdateCmd)
	rootCmd.AddCommand(planCmd)
}
