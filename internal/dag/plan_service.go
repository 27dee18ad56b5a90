package dag

import (
	"context"
	"time"

	"github.com/layercake/layercake/internal/eventbus"
	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// PlanDeltaPublisher emits a PlanDagDeltaEvent after a Plan DAG mutation.
// PublishPlanDelta's signature intentionally matches eventbus.Publisher's so
// any Publisher also satisfies this narrower port without an adapter.
type PlanDeltaPublisher interface {
	PublishPlanDelta(ctx context.Context, event eventbus.PlanDagDeltaEvent)
}

type noopDeltaPublisher struct{}

func (noopDeltaPublisher) PublishPlanDelta(context.Context, eventbus.PlanDagDeltaEvent) {}

// PlanService implements update_plan_dag (spec.md §4.1's Lifecycles
// contract: "update_plan_dag is atomic: the previous set is deleted and the
// new set inserted under the same plan"), the Plan.Version bump that
// accompanies it, and the P10 delta publish that follows.
type PlanService struct {
	plans     store.PlanStore
	publisher PlanDeltaPublisher
	logger    log.Logger
	now       func() time.Time
}

// NewPlanService wires a PlanService. publisher may be nil.
func NewPlanService(plans store.PlanStore, publisher PlanDeltaPublisher, logger log.Logger) *PlanService {
	if publisher == nil {
		publisher = noopDeltaPublisher{}
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &PlanService{
		plans:     plans,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// UpdatePlanDag atomically replaces planID's node and edge set, bumps
// Plan.Version by exactly one (P9), and publishes the minimal JSON-Patch
// delta against the prior DAG snapshot (P10).
func (s *PlanService) UpdatePlanDag(ctx context.Context, planID, userID string, nodes []*model.PlanDagNode, edges []*model.PlanDagEdge) (*model.Plan, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	oldNodes, err := s.plans.ListNodes(ctx, planID)
	if err != nil {
		return nil, err
	}
	oldEdges, err := s.plans.ListEdges(ctx, planID)
	if err != nil {
		return nil, err
	}

	if err := s.plans.ReplacePlanDag(ctx, planID, nodes, edges); err != nil {
		return nil, err
	}

	plan.Version++
	plan.UpdatedAt = s.now()
	if err := s.plans.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}

	ops := append(
		eventbus.DiffSnapshots("nodes", nodeSnapshot(oldNodes), nodeSnapshot(nodes)),
		eventbus.DiffSnapshots("edges", edgeSnapshot(oldEdges), edgeSnapshot(edges))...,
	)
	s.publisher.PublishPlanDelta(ctx, eventbus.PlanDagDeltaEvent{
		ProjectID:  plan.ProjectID,
		PlanID:     planID,
		Version:    plan.Version,
		UserID:     userID,
		Operations: ops,
		Timestamp:  s.now(),
	})
	s.logger.Info("plan %s: update_plan_dag applied, version=%d, nodes=%d, edges=%d, ops=%d", planID, plan.Version, len(nodes), len(edges), len(ops))

	return plan, nil
}

func nodeSnapshot(nodes []*model.PlanDagNode) map[string]any {
	snap := make(map[string]any, len(nodes))
	for _, n := range nodes {
		snap[n.ID] = n
	}
	return snap
}

func edgeSnapshot(edges []*model.PlanDagEdge) map[string]any {
	snap := make(map[string]any, len(edges))
	for _, e := range edges {
		snap[e.ID] = e
	}
	return snap
}
