package chunkstore

import (
	"context"
	"time"

	"github.com/qdrant/go-client/qdrant"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
	"github.com/inherent-design/atlas-sub010/internal/logging"
	"github.com/inherent-design/atlas-sub010/pkg/chunk"
)

// QdrantStore implements Store against a Qdrant collection. It pairs
// the vector store with an in-process full-text index (see fulltext.go)
// since Qdrant's payload index is not a general-purpose keyword search
// engine; the two are kept consistent on every Upsert/Delete.
type QdrantStore struct {
	client  *qdrant.Client
	logger  logging.Logger
	ft      *fullTextIndex
	timeout time.Duration
}

// Config configures the Qdrant connection.
type Config struct {
	Host    string
	Port    int
	APIKey  string
	UseTLS  bool
	Timeout time.Duration
}

// NewQdrantStore dials Qdrant and builds the companion full-text index.
func NewQdrantStore(ctx context.Context, cfg Config, logger logging.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, atlaserrors.Fatal(err)
	}

	ft, err := newFullTextIndex()
	if err != nil {
		return nil, atlaserrors.Fatal(err)
	}

	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	return &QdrantStore{client: client, logger: logger.WithComponent("chunkstore"), ft: ft, timeout: cfg.Timeout}, nil
}

func (s *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.client.CollectionExists(ctx, name)
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, vector VectorSpec) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return atlaserrors.Transient(err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vector.Name: {
				Size:     uint64(vector.Dimension), //nolint:gosec // dimension is always small and positive
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return atlaserrors.Fatal(err)
	}
	return nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return atlaserrors.Transient(err)
	}
	s.ft.Clear()
	return nil
}

func (s *QdrantStore) GetCollectionInfo(ctx context.Context, name string) (CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return CollectionInfo{}, atlaserrors.Transient(err)
	}
	dim := 0
	if params := info.GetConfig().GetParams(); params != nil {
		for _, v := range params.GetVectorsConfig().GetParamsMap().GetMap() {
			dim = int(v.GetSize())
			break
		}
	}
	var count int64
	if info.PointsCount != nil {
		count = int64(*info.PointsCount) //nolint:gosec // point counts fit in int64 in practice
	}
	return CollectionInfo{Name: name, VectorDim: dim, PointCount: count}, nil
}

func (s *QdrantStore) SetHNSW(ctx context.Context, collection string, enabled bool) error {
	threshold := uint64(10000) // Qdrant's default full_scan_threshold
	if !enabled {
		threshold = 1 << 62 // effectively disables graph construction
	}
	_, err := s.client.UpdateCollection(ctx, &qdrant.UpdateCollection{
		CollectionName: collection,
		HnswConfig: &qdrant.HnswConfigDiff{
			EfConstruct:       nil,
			M:                 nil,
			FullScanThreshold: &threshold,
		},
	})
	if err != nil {
		return atlaserrors.Transient(err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []*chunk.Chunk, wait bool) error {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = chunkToPoint(c)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return atlaserrors.Transient(err)
	}

	for _, c := range chunks {
		s.ft.Index(c.ID, c.OriginalText)
	}
	return nil
}

func (s *QdrantStore) SetPayload(ctx context.Context, collection string, ids []string, patch map[string]any) error {
	payload := make(map[string]*qdrant.Value, len(patch))
	for k, v := range patch {
		payload[k] = toQdrantValue(v)
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = stringToPointID(id)
	}

	_, err := s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: collection,
		Payload:        payload,
		PointsSelector: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return atlaserrors.Transient(err)
	}
	return nil
}

func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = stringToPointID(id)
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return atlaserrors.Transient(err)
	}
	for _, id := range ids {
		s.ft.Remove(id)
	}
	return nil
}

func (s *QdrantStore) Retrieve(ctx context.Context, collection string, ids []string) ([]*chunk.Chunk, error) {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = stringToPointID(id)
	}
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, atlaserrors.Transient(err)
	}
	out := make([]*chunk.Chunk, 0, len(points))
	for _, p := range points {
		out = append(out, retrievedPointToChunk(p))
	}
	return out, nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, params SearchParams) ([]ScoredChunk, error) {
	limit := uint64(params.Limit) //nolint:gosec // limit is bounds-checked by callers
	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(params.Vector...),
		Using:          &params.VectorName,
		Limit:          &limit,
		Filter:         toQdrantFilter(params.Filter),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, atlaserrors.Transient(err)
	}
	out := make([]ScoredChunk, 0, len(result))
	for _, p := range result {
		out = append(out, ScoredChunk{Chunk: scoredPointToChunk(p), Score: p.GetScore()})
	}
	return out, nil
}

func (s *QdrantStore) Scroll(ctx context.Context, collection string, params ScrollParams) (ScrollPage, error) {
	limit := uint32(params.Limit) //nolint:gosec // limit is bounds-checked by callers
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(params.Filter),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(params.WithPayload),
		WithVectors:    qdrant.NewWithVectors(params.WithVector),
	}
	if params.Offset != "" {
		req.Offset = stringToPointID(params.Offset)
	}

	points, err := s.client.Scroll(ctx, req)
	if err != nil {
		return ScrollPage{}, atlaserrors.Transient(err)
	}
	page := ScrollPage{Chunks: make([]*chunk.Chunk, 0, len(points))}
	for _, p := range points {
		page.Chunks = append(page.Chunks, retrievedPointToChunk(p))
	}
	if len(points) > 0 {
		page.NextOffset = pointIDToString(points[len(points)-1].Id)
	}
	return page, nil
}

func (s *QdrantStore) FullTextSearch(ctx context.Context, collection, query string, limit int) ([]FullTextResult, error) {
	return s.ft.Search(query, limit)
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
