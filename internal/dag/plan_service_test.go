package dag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layercake/layercake/internal/eventbus"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store/memory"
)

type fakeDeltaPublisher struct {
	events []eventbus.PlanDagDeltaEvent
}

func (f *fakeDeltaPublisher) PublishPlanDelta(_ context.Context, event eventbus.PlanDagDeltaEvent) {
	f.events = append(f.events, event)
}

func seedPlan(t *testing.T, plans *memory.Store, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) *model.Plan {
	t.Helper()
	plan := &model.Plan{ID: "plan-1", ProjectID: "proj-1", Version: 1, Status: model.PlanDraft, CreatedAt: time.Unix(1, 0), UpdatedAt: time.Unix(1, 0)}
	require.NoError(t, plans.CreatePlan(context.Background(), plan))
	for _, n := range nodes {
		require.NoError(t, plans.CreateNode(context.Background(), n))
	}
	for _, e := range edges {
		require.NoError(t, plans.CreateEdge(context.Background(), e))
	}
	return plan
}

func TestUpdatePlanDag_ReplacesSetAndBumpsVersionByOne(t *testing.T) {
	plans := memory.New(nil)
	seedPlan(t, plans, []*model.PlanDagNode{
		{ID: "n1", PlanID: "plan-1", NodeType: model.NodeTypeDataSet},
	}, nil)

	pub := &fakeDeltaPublisher{}
	svc := NewPlanService(plans, pub, nil)

	newNodes := []*model.PlanDagNode{
		{ID: "n2", PlanID: "plan-1", NodeType: model.NodeTypeGraph},
	}
	updated, err := svc.UpdatePlanDag(context.Background(), "plan-1", "user-1", newNodes, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	nodes, err := plans.ListNodes(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "n2", nodes[0].ID)
}

func TestUpdatePlanDag_PublishesAddRemoveReplaceDelta(t *testing.T) {
	plans := memory.New(nil)
	seedPlan(t, plans, []*model.PlanDagNode{
		{ID: "n1", PlanID: "plan-1", NodeType: model.NodeTypeDataSet, Metadata: model.NodeMetadata{Label: "old"}},
		{ID: "n2", PlanID: "plan-1", NodeType: model.NodeTypeGraph},
	}, []*model.PlanDagEdge{
		{ID: "e1", PlanID: "plan-1", SourceNodeID: "n1", TargetNodeID: "n2"},
	})

	pub := &fakeDeltaPublisher{}
	svc := NewPlanService(plans, pub, nil)

	newNodes := []*model.PlanDagNode{
		{ID: "n1", PlanID: "plan-1", NodeType: model.NodeTypeDataSet, Metadata: model.NodeMetadata{Label: "new"}},
		{ID: "n3", PlanID: "plan-1", NodeType: model.NodeTypeFilter},
	}
	_, err := svc.UpdatePlanDag(context.Background(), "plan-1", "user-1", newNodes, nil)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ops := pub.events[0].Operations
	require.NotEmpty(t, ops)

	byPath := map[string]eventbus.PatchOp{}
	for _, op := range ops {
		byPath[op.Path] = op
	}
	assert.Equal(t, "replace", byPath["nodes/n1"].Op)
	assert.Equal(t, "add", byPath["nodes/n3"].Op)
	assert.Equal(t, "remove", byPath["nodes/n2"].Op)
	assert.Equal(t, "remove", byPath["edges/e1"].Op)

	assert.Equal(t, "plan-1", pub.events[0].PlanID)
	assert.Equal(t, "proj-1", pub.events[0].ProjectID)
	assert.Equal(t, "user-1", pub.events[0].UserID)
	assert.Equal(t, int64(2), pub.events[0].Version)
}

func TestUpdatePlanDag_NoPublisherDoesNotPanic(t *testing.T) {
	plans := memory.New(nil)
	seedPlan(t, plans, nil, nil)

	svc := NewPlanService(plans, nil, nil)
	_, err := svc.UpdatePlanDag(context.Background(), "plan-1", "user-1", nil, nil)
	require.NoError(t, err)
}

func TestUpdatePlanDag_UnknownPlanFails(t *testing.T) {
	plans := memory.New(nil)
	svc := NewPlanService(plans, nil, nil)
	_, err := svc.UpdatePlanDag(context.Background(), "missing", "user-1", nil, nil)
	assert.Error(t, err)
}
