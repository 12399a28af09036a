package feedback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

func mustRecord(t *testing.T, question string, rating int) Record {
	t.Helper()
	r, err := NewRecord(question, "answer", rating, "feedback on "+question, "")
	require.NoError(t, err)
	return r
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("Solve x + 1", "solve X + 1"))
	assert.Equal(t, 0.0, Jaccard("solve x", "hello world"))
	assert.Equal(t, 0.0, Jaccard("", ""))
	assert.InDelta(t, 0.5, Jaccard("a b c", "b c d"), 1e-9)
}

func TestNewRecord(t *testing.T) {
	at := time.Unix(1700000000, 500000000)
	r, err := newRecordAt("What is 2+2?", "4", 5, "great", "", at)
	require.NoError(t, err)
	assert.Equal(t, utils.MD5Hash("What is 2+2?"+"1700000000.5"+"5"), r.ID)
	assert.Equal(t, at, r.IssuedAt)

	_, err = NewRecord("q", "a", 0, "", "")
	assert.True(t, errors.Is(err, ErrInvalidRating))
	_, err = NewRecord("q", "a", 6, "", "")
	assert.True(t, errors.Is(err, ErrInvalidRating))
	_, err = NewRecord("  ", "a", 3, "", "")
	assert.True(t, errors.Is(err, ErrEmptyQuestion))
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.json")
	store, err := OpenFileStore(path, utils.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, mustRecord(t, "How do I solve quadratic equations by factoring", 2)))

	matches, err := store.QuerySimilar(ctx, "how do I solve quadratic equations by factoring?", DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.GreaterOrEqual(t, matches[0].Similarity, DefaultThreshold)

	matches, err = store.QuerySimilar(ctx, "integrate sine", DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, matches)

	reopened, err := OpenFileStore(path, utils.NopLogger())
	require.NoError(t, err)
	all, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Rating)
}

func TestFileStore_OrderingAndTies(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "f.json"), utils.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	first := mustRecord(t, "solve x plus one", 3)
	partial := mustRecord(t, "solve x", 4)
	second := mustRecord(t, "solve x plus one", 5)
	for _, r := range []Record{first, partial, second} {
		require.NoError(t, store.Append(ctx, r))
	}

	matches, err := store.QuerySimilar(ctx, "solve x plus one", 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, first.ID, matches[0].ID)
	assert.Equal(t, second.ID, matches[1].ID)
	assert.Equal(t, partial.ID, matches[2].ID)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store, err := OpenFileStore(path, utils.NopLogger())
	require.NoError(t, err)
	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_WriteFailureKeepsState(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "missing-dir", "f.json"), utils.NopLogger())
	require.NoError(t, err)

	err = store.Append(context.Background(), mustRecord(t, "q", 3))
	assert.Error(t, err)
	all, _ := store.All(context.Background())
	assert.Empty(t, all)
}

func TestStats(t *testing.T) {
	assert.Equal(t, Stats{}, computeStats(nil))

	stats := computeStats([]Record{{Rating: 5}, {Rating: 4}, {Rating: 3}, {Rating: 2}, {Rating: 1}, {Rating: 5}})
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.Positive)
	assert.Equal(t, 2, stats.Negative)
	assert.InDelta(t, 3.33, stats.AverageRating, 1e-9)
}

func TestBuildContext(t *testing.T) {
	matches := []Match{
		{Record: Record{Question: "q1", Rating: 2, FeedbackText: "too short", SuggestedCorrection: "show steps"}},
		{Record: Record{Question: "q2", Rating: 5}},
		{Record: Record{Question: "q3", Rating: 4}},
		{Record: Record{Question: "q4", Rating: 1}},
	}

	ctx := BuildContext(matches, 3)
	assert.Contains(t, ctx, "Previous feedback on similar question 'q1':\nRating: 2/5\nFeedback: too short\nSuggested correction: show steps")
	assert.Contains(t, ctx, "q3")
	assert.NotContains(t, ctx, "q4")
	assert.Empty(t, BuildContext(nil, 3))
}

type memoryRepo struct {
	entries []models.FeedbackEntry
	err     error
}

func (m *memoryRepo) Create(entry *models.FeedbackEntry) error {
	if m.err != nil {
		return m.err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryRepo) GetAll() ([]models.FeedbackEntry, error) { return m.entries, m.err }

func TestDBStore(t *testing.T) {
	repo := &memoryRepo{}
	store := NewDBStore(repo, utils.NopLogger())
	ctx := context.Background()

	rec := mustRecord(t, "differentiate x squared", 4)
	require.NoError(t, store.Append(ctx, rec))

	matches, err := store.QuerySimilar(ctx, "Differentiate x squared", DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, rec.ID, matches[0].ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Positive)

	repo.err = errors.New("connection refused")
	_, err = store.QuerySimilar(ctx, "q", DefaultThreshold)
	assert.Error(t, err)
}

func TestDBStore_KeepsRepeatedIDs(t *testing.T) {
	repo := &memoryRepo{}
	store := NewDBStore(repo, utils.NopLogger())
	ctx := context.Background()

	rec := mustRecord(t, "integrate 2x", 5)
	require.NoError(t, store.Append(ctx, rec))
	require.NoError(t, store.Append(ctx, rec))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, all[0].ID, all[1].ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestAdvisor(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "f.json"), utils.NopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), mustRecord(t, "solve 2x = 4", 1)))

	advisor := NewAdvisor(store, 0)
	text, err := advisor.FeedbackContext(context.Background(), "solve 2x = 4")
	require.NoError(t, err)
	assert.Contains(t, text, "Rating: 1/5")

	text, err = advisor.FeedbackContext(context.Background(), "what is a prime")
	require.NoError(t, err)
	assert.Empty(t, text)
}
