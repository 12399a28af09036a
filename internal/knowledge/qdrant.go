package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type QdrantConfig struct {
	URL        string // e.g. "http://localhost:6333"
	APIKey     string
	Collection string
	Dims       uint64
}

// QdrantIndex implements Index over the Qdrant gRPC API.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	logger     *logrus.Logger

	healthGroup singleflight.Group
	healthErr   atomic.Value // stores *error
	healthAt    atomic.Int64 // unix nanos of last check
}

// parseQdrantURL extracts host, port, and TLS flag from a Qdrant URL. The
// REST port 6333 is mapped to the gRPC port 6334.
func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("knowledge: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("knowledge: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

func NewQdrantIndex(cfg QdrantConfig, logger *logrus.Logger) (*QdrantIndex, error) {
	host, port, useTLS, err := parseQdrantURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dims:       cfg.Dims,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the cosine collection if missing. With recreate
// set, an existing collection is dropped first.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, recreate bool) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("knowledge: check collection exists: %w", err)
	}

	if exists && recreate {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("knowledge: delete collection %q: %w", q.collection, err)
		}
		q.logger.WithField("collection", q.collection).Info("Dropped existing collection")
		exists = false
	}

	if exists {
		q.logger.WithField("collection", q.collection).Info("Collection already exists")
		return nil
	}

	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dims,
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return fmt.Errorf("knowledge: create collection %q: %w", q.collection, err)
	}

	q.logger.WithFields(logrus.Fields{
		"collection": q.collection,
		"dims":       q.dims,
	}).Info("Created collection")
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		k = 1
	}
	limit := uint64(k)

	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: qdrant query: %w", err)
	}

	results := make([]ScoredPoint, 0, len(scored))
	for _, sp := range scored {
		results = append(results, ScoredPoint{
			ID:      sp.GetId().GetNum(),
			Score:   float64(sp.GetScore()),
			Payload: payloadFromValues(sp.GetPayload()),
		})
	}
	return results, nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectorsDense(p.Vector),
			Payload: qdrant.NewValueMap(payloadToMap(p.Payload)),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("knowledge: qdrant upsert %d points: %w", len(points), err)
	}
	return nil
}

func (q *QdrantIndex) ExistingOriginalIDs(ctx context.Context, ids []uint64) (map[uint64]string, error) {
	existing := make(map[uint64]string)
	if len(ids) == 0 {
		return existing, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(id)
	}

	points, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayloadInclude("original_id"),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: qdrant get %d points: %w", len(ids), err)
	}

	for _, p := range points {
		existing[p.GetId().GetNum()] = valueString(p.GetPayload()["original_id"])
	}
	return existing, nil
}

// Count returns the number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("knowledge: qdrant count: %w", err)
	}
	return n, nil
}

// Healthy returns nil if Qdrant is reachable. Results are cached for 5
// seconds and concurrent checks share one gRPC call.
func (q *QdrantIndex) Healthy(ctx context.Context) error {
	if time.Since(time.Unix(0, q.healthAt.Load())) < 5*time.Second {
		return q.loadHealthErr()
	}

	// singleflight reuses the first caller's context, so use our own.
	result, _, _ := q.healthGroup.Do("health", func() (any, error) {
		checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		_, err := q.client.HealthCheck(checkCtx)
		if err != nil {
			q.storeHealthErr(fmt.Errorf("knowledge: qdrant unhealthy: %w", err))
		} else {
			q.storeHealthErr(nil)
		}
		q.healthAt.Store(time.Now().UnixNano())
		return q.loadHealthErr(), nil
	})
	if result == nil {
		return nil
	}
	return result.(error)
}

func (q *QdrantIndex) storeHealthErr(err error) {
	q.healthErr.Store(&err)
}

func (q *QdrantIndex) loadHealthErr() error {
	v := q.healthErr.Load()
	if v == nil {
		return nil
	}
	return *v.(*error)
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func payloadToMap(p Payload) map[string]any {
	m := map[string]any{
		"question":    p.Question,
		"answer":      p.Answer,
		"level":       p.Level,
		"type":        p.Type,
		"category":    p.Category,
		"difficulty":  int64(p.Difficulty),
		"original_id": p.OriginalID,
	}
	if p.Steps != "" {
		m["steps"] = p.Steps
	}
	return m
}

func payloadFromValues(values map[string]*qdrant.Value) Payload {
	return Payload{
		Question:   valueString(values["question"]),
		Answer:     valueString(values["answer"]),
		Steps:      valueString(values["steps"]),
		Level:      valueString(values["level"]),
		Type:       valueString(values["type"]),
		Category:   valueString(values["category"]),
		Difficulty: valueInt(values["difficulty"], 1),
		OriginalID: valueString(values["original_id"]),
	}
}

func valueString(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(kind.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
	default:
		return ""
	}
}

func valueInt(v *qdrant.Value, fallback int) int {
	if v == nil {
		return fallback
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return int(kind.DoubleValue)
	case *qdrant.Value_StringValue:
		if n, err := strconv.Atoi(kind.StringValue); err == nil {
			return n
		}
	}
	return fallback
}
