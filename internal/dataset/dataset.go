package dataset

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/layercake/layercake/internal/graphmodel"
	"github.com/layercake/layercake/internal/log"
	"github.com/layercake/layercake/internal/model"
	"github.com/layercake/layercake/internal/store"
)

// Service implements the Dataset Store (spec.md §4.1).
type Service struct {
	store    store.DatasetStore
	plans    store.PlanStore
	graphs   store.GraphDataStore
	external FormatParser
	logger   log.Logger
	now      func() time.Time
}

// NewService wires a Dataset Store service. external may be nil, in which
// case an UnsupportedFormatParser is used.
func NewService(ds store.DatasetStore, plans store.PlanStore, graphs store.GraphDataStore, external FormatParser, logger log.Logger) *Service {
	if external == nil {
		external = UnsupportedFormatParser{}
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	return &Service{
		store:    ds,
		plans:    plans,
		graphs:   graphs,
		external: external,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateFromFile validates the declared format against filename's extension,
// resolves data_type (declared or inferred), parses bytes to normal form and
// persists the resulting Dataset.
func (s *Service) CreateFromFile(ctx context.Context, projectID, name, description, filename string, declaredFormat model.FileFormat, blob []byte, declaredDataType *model.DataType) (*model.Dataset, error) {
	ext, ok := FormatForExtension(filename)
	if !ok || ext != declaredFormat {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "filename %q does not match declared format %q", filename, declaredFormat)
	}

	dataType, err := s.resolveDataType(declaredFormat, blob, declaredDataType)
	if err != nil {
		return nil, err
	}

	ds := &model.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		Filename:    filename,
		FileFormat:  declaredFormat,
		DataType:    dataType,
		Blob:        blob,
		Status:      model.DatasetProcessing,
		Origin:      "upload",
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}

	if err := s.parseInto(ds); err != nil {
		ds.Status = model.DatasetError
		ds.ErrorMessage = err.Error()
		if storeErr := s.store.CreateDataset(ctx, ds); storeErr != nil {
			return nil, storeErr
		}
		return ds, err
	}

	if err := s.store.CreateDataset(ctx, ds); err != nil {
		return nil, err
	}
	s.logger.Info("dataset created: %s (%s/%s)", ds.ID, ds.FileFormat, ds.DataType)
	return ds, nil
}

// CreateEmpty creates a manually-managed Dataset with an empty graph,
// editable directly via UpdateGraphData.
func (s *Service) CreateEmpty(ctx context.Context, projectID, name, description string) (*model.Dataset, error) {
	ds := &model.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		FileFormat:  model.FormatJSON,
		DataType:    model.DataTypeGraph,
		Status:      model.DatasetActive,
		GraphJSON:   &model.NormalForm{Nodes: []model.NormalNode{}, Edges: []model.NormalEdge{}, Layers: []model.NormalLayer{}},
		Origin:      "manual_edit",
		ProcessedAt: s.now(),
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	if err := s.store.CreateDataset(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// UpdateGraphData directly overwrites a Dataset's normal form, bumps
// processed_at and invalidates any downstream GraphData built from it.
func (s *Service) UpdateGraphData(ctx context.Context, id string, graphJSON *model.NormalForm) (*model.Dataset, error) {
	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	normalizeNormalForm(graphJSON)
	ds.GraphJSON = graphJSON
	ds.Status = model.DatasetActive
	ds.ErrorMessage = ""
	ds.ProcessedAt = s.now()
	ds.UpdatedAt = s.now()
	if err := s.store.UpdateDataset(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.invalidateDownstream(ctx, id); err != nil {
		return nil, err
	}
	return ds, nil
}

// UpdateFile replaces a Dataset's blob, re-infers its format from the new
// filename and re-parses it.
func (s *Service) UpdateFile(ctx context.Context, id, filename string, blob []byte) (*model.Dataset, error) {
	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	format, ok := FormatForExtension(filename)
	if !ok {
		return nil, model.Wrap(model.ErrUnsupportedFormat, "unrecognised extension in filename %q", filename)
	}

	dataType, err := s.resolveDataType(format, blob, nil)
	if err != nil {
		return nil, err
	}

	ds.Filename = filename
	ds.FileFormat = format
	ds.DataType = dataType
	ds.Blob = blob
	ds.Status = model.DatasetProcessing
	ds.UpdatedAt = s.now()

	if err := s.parseInto(ds); err != nil {
		ds.Status = model.DatasetError
		ds.ErrorMessage = err.Error()
		_ = s.store.UpdateDataset(ctx, ds)
		return ds, err
	}

	if err := s.store.UpdateDataset(ctx, ds); err != nil {
		return nil, err
	}
	if err := s.invalidateDownstream(ctx, id); err != nil {
		return nil, err
	}
	return ds, nil
}

// Reprocess re-parses a Dataset's existing blob without changing its
// declared format or data type.
func (s *Service) Reprocess(ctx context.Context, id string) (*model.Dataset, error) {
	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(ds.Blob) == 0 {
		return nil, model.Wrap(model.ErrInvalidConfig, "dataset %s has no blob to reprocess", id)
	}
	ds.Status = model.DatasetProcessing
	ds.UpdatedAt = s.now()

	if err := s.parseInto(ds); err != nil {
		ds.Status = model.DatasetError
		ds.ErrorMessage = err.Error()
		_ = s.store.UpdateDataset(ctx, ds)
		return ds, err
	}
	if err := s.store.UpdateDataset(ctx, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Validate checks a Dataset's graph_json against §3's invariants without
// mutating anything, reusing graphmodel's validator over a throwaway Graph
// built from the normal form.
func (s *Service) Validate(ctx context.Context, id string) (graphmodel.ValidationResult, error) {
	ds, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return graphmodel.ValidationResult{}, err
	}
	if ds.GraphJSON == nil {
		return graphmodel.ValidationResult{}, model.Wrap(model.ErrInvalidConfig, "dataset %s has no parsed graph to validate", id)
	}
	g := graphmodel.New(id)
	loadNormalForm(g, ds.GraphJSON, id)
	return g.Validate(), nil
}

// Delete removes a Dataset and cascades to every DataSetNode plan-DAG node
// referencing it, along with their incident edges.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.plans != nil {
		nodes, err := s.plans.NodesReferencingDataset(ctx, id)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if err := s.plans.DeleteIncidentEdges(ctx, n.ID); err != nil {
				return err
			}
			if err := s.plans.DeleteNode(ctx, n.ID); err != nil {
				return err
			}
		}
	}
	return s.store.DeleteDataset(ctx, id)
}

func (s *Service) resolveDataType(format model.FileFormat, blob []byte, declared *model.DataType) (model.DataType, error) {
	if declared != nil {
		if !IsCompatible(format, *declared) {
			return "", model.Wrap(model.ErrUnsupportedFormat, "data_type %q is not compatible with format %q", *declared, format)
		}
		return *declared, nil
	}

	switch {
	case IsTabular(format):
		headers, err := peekCSVHeaders(blob, format)
		if err != nil {
			return "", err
		}
		return InferDataType(headers)
	case format == model.FormatJSON:
		return inferJSONDataType(blob)
	default:
		return "", model.Wrap(model.ErrUnsupportedFormat, "format %q requires an explicit data_type", format)
	}
}

func (s *Service) parseInto(ds *model.Dataset) error {
	var nf *model.NormalForm
	var err error

	switch {
	case IsTabular(ds.FileFormat):
		nf, err = ParseTabular(newBytesReader(ds.Blob), ds.FileFormat, ds.DataType)
	case ds.FileFormat == model.FormatJSON:
		nf, err = ParseJSON(ds.Blob, ds.DataType)
	default:
		nf, err = s.external.Parse(ds.Blob, ds.FileFormat, ds.DataType)
	}
	if err != nil {
		return err
	}

	ds.GraphJSON = nf
	ds.Status = model.DatasetActive
	ds.ErrorMessage = ""
	ds.ProcessedAt = s.now()
	return nil
}

func (s *Service) invalidateDownstream(ctx context.Context, sourceID string) error {
	if s.graphs == nil {
		return nil
	}
	downstream, err := s.graphs.DownstreamOf(ctx, sourceID)
	if err != nil {
		return err
	}
	for _, gd := range downstream {
		gd.Status = model.GraphDataProcessing
		gd.SourceHash = ""
		if err := s.graphs.UpdateGraphData(ctx, gd); err != nil {
			return err
		}
	}
	return nil
}

// loadNormalForm materialises a normal form's records into g, mirroring the
// shape the Graph Build Engine produces, for standalone validation.
func loadNormalForm(g *graphmodel.Graph, nf *model.NormalForm, sourceID string) {
	for _, n := range nf.Nodes {
		weight := 1.0
		if n.Weight != nil {
			weight = *n.Weight
		}
		label := n.Label
		if label == "" {
			label = n.ID
		}
		g.UpsertNode(&model.GraphNode{
			ExternalID:  n.ID,
			GraphDataID: sourceID,
			Label:       label,
			Layer:       n.Layer,
			Weight:      weight,
			IsPartition: n.IsPartition,
			BelongsTo:   n.BelongsTo,
			Attributes:  n.Attrs,
		})
	}
	for _, e := range nf.Edges {
		weight := 1.0
		if e.Weight != nil {
			weight = *e.Weight
		}
		g.AppendEdge(&model.GraphEdge{
			ExternalID:  e.ID,
			GraphDataID: sourceID,
			Source:      e.Source,
			Target:      e.Target,
			Label:       e.Label,
			Layer:       e.Layer,
			Weight:      weight,
			Attributes:  e.Attrs,
		})
	}
	for _, l := range nf.Layers {
		g.UpsertLayer(&model.GraphLayer{
			LayerID:         l.ID,
			GraphDataID:     sourceID,
			Name:            l.Label,
			BackgroundColor: l.BackgroundColor,
			TextColor:       l.TextColor,
			BorderColor:     l.BorderColor,
			Alias:           l.Alias,
		})
	}
}

func inferJSONDataType(blob []byte) (model.DataType, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(blob, &probe); err != nil {
		return "", model.Wrap(model.ErrAmbiguousDataType, "json source is not an object: %v", err)
	}
	_, hasNodes := probe["nodes"]
	_, hasEdges := probe["edges"]
	if hasNodes && hasEdges {
		return model.DataTypeGraph, nil
	}
	return "", model.Wrap(model.ErrAmbiguousDataType, "json source lacks both nodes and edges keys; declare data_type explicitly")
}
