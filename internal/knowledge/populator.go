package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/embedding"
)

const DefaultBatchSize = 100

type PopulateStats struct {
	Total      int `json:"total"`
	Upserted   int `json:"upserted"`
	Skipped    int `json:"skipped"`
	Collisions int `json:"collisions"`
	Batches    int `json:"batches"`
}

// Populator writes dataset records into the index. Upserts are idempotent
// on point id, so re-running a population is safe.
type Populator struct {
	embedder  embedding.Provider
	index     Index
	registry  *IDRegistry
	retry     RetryConfig
	batchSize int
	logger    *logrus.Logger
}

func NewPopulator(embedder embedding.Provider, index Index, retry RetryConfig, logger *logrus.Logger) *Populator {
	return &Populator{
		embedder:  embedder,
		index:     index,
		registry:  NewIDRegistry(),
		retry:     retry,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

func (p *Populator) SetBatchSize(n int) {
	if n > 0 {
		p.batchSize = n
	}
}

// registryKey identifies a record for collision checks.
func registryKey(r Record, index int) string {
	if r.StringID != "" {
		return "id:" + r.StringID
	}
	return "pos:" + strconv.Itoa(index)
}

type pending struct {
	id     uint64
	record Record
}

// Populate embeds and upserts records in batches. Records whose id would
// overwrite a different record are skipped and counted as collisions.
// offset is added to positional ids so several calls can share an index.
func (p *Populator) Populate(ctx context.Context, records []Record, offset int) (PopulateStats, error) {
	stats := PopulateStats{Total: len(records)}

	var queue []pending
	for i, r := range records {
		if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
			stats.Skipped++
			continue
		}

		id := PointID(r.StringID, offset+i)
		if err := p.registry.Register(id, registryKey(r, offset+i)); err != nil {
			p.logger.WithError(err).Error("Skipping record")
			stats.Collisions++
			continue
		}
		queue = append(queue, pending{id: id, record: r})
	}

	for start := 0; start < len(queue); start += p.batchSize {
		end := start + p.batchSize
		if end > len(queue) {
			end = len(queue)
		}

		upserted, collisions, err := p.upsertBatch(ctx, queue[start:end])
		stats.Upserted += upserted
		stats.Collisions += collisions
		stats.Batches++
		if err != nil {
			return stats, err
		}

		p.logger.WithFields(logrus.Fields{
			"upserted": stats.Upserted,
			"total":    len(queue),
		}).Info("Upserted batch")
	}

	return stats, nil
}

func (p *Populator) upsertBatch(ctx context.Context, batch []pending) (int, int, error) {
	ids := make([]uint64, len(batch))
	for i, item := range batch {
		ids[i] = item.id
	}

	var stored map[uint64]string
	err := p.retry.Do(ctx, p.logger, "check existing points", func() error {
		var err error
		stored, err = p.index.ExistingOriginalIDs(ctx, ids)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	collisions := 0
	kept := batch[:0:0]
	for _, item := range batch {
		if existing, ok := stored[item.id]; ok && existing != item.record.OriginalID {
			p.logger.WithError(fmt.Errorf("%w: stored %q, new %q", ErrIDCollision, existing, item.record.OriginalID)).
				WithField("point_id", item.id).Error("Skipping record")
			collisions++
			continue
		}
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return 0, collisions, nil
	}

	questions := make([]string, len(kept))
	for i, item := range kept {
		questions[i] = item.record.Question
	}

	var vectors [][]float32
	err = p.retry.Do(ctx, p.logger, "embed batch", func() error {
		var err error
		vectors, err = p.embedder.EmbedBatch(ctx, questions)
		return err
	})
	if err != nil {
		return 0, collisions, err
	}
	if len(vectors) != len(kept) {
		return 0, collisions, errors.New("embedding count does not match batch size")
	}

	points := make([]Point, len(kept))
	for i, item := range kept {
		points[i] = Point{
			ID:      item.id,
			Vector:  vectors[i],
			Payload: item.record.Payload(),
		}
	}

	err = p.retry.Do(ctx, p.logger, "upsert batch", func() error {
		return p.index.Upsert(ctx, points)
	})
	if err != nil {
		return 0, collisions, err
	}

	return len(points), collisions, nil
}
