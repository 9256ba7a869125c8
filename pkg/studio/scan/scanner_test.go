package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-studio/pkg/studio"
	"github.com/tendant/content-studio/pkg/studio/presets"
)

type recordingSink struct {
	studio.NoopEventSink
	updated []string
}

func (r *recordingSink) DocumentUpdated(ctx context.Context, doc *studio.Document) error {
	r.updated = append(r.updated, doc.ID)
	return nil
}

func TestScan_AllTypesInBatches(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())
	scanner := New(svc, nil)

	var seen []string
	var progressCalls int
	result, err := scanner.Scan(context.Background(), ScanOptions{
		BatchSize: 1,
		Processor: ProcessorFunc(func(ctx context.Context, doc *studio.Document) error {
			seen = append(seen, doc.ID)
			return nil
		}),
		OnProgress: func(processed, found int64) { progressCalls++ },
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.TotalFound)
	assert.Equal(t, int64(4), result.TotalProcessed)
	assert.Zero(t, result.TotalFailed)
	assert.ElementsMatch(t, []string{
		"author-maria-santos", "category-grammar", "category-vocabulary", "post-mga-panghalip",
	}, seen)
	assert.Positive(t, progressCalls)
	assert.NoError(t, result.Err())
}

func TestScan_TypesAndWhere(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())

	result, err := New(svc, nil).Scan(context.Background(), ScanOptions{
		Types:  []string{"post"},
		Where:  map[string]any{"status": "draft"},
		DryRun: true,
	})
	require.NoError(t, err)
	assert.Zero(t, result.TotalFound)

	result, err = New(svc, nil).Scan(context.Background(), ScanOptions{
		Types:  []string{"category"},
		DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalFound)
	assert.Equal(t, int64(2), result.TotalProcessed)
}

func TestScan_FailuresAreRecorded(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())

	result, err := New(svc, nil).ForEach(context.Background(), []string{"category"}, func(ctx context.Context, doc *studio.Document) error {
		if doc.ID == "category-grammar" {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalProcessed)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.Equal(t, []string{"category-grammar"}, result.FailedIDs)
	assert.ErrorIs(t, result.Err(), assert.AnError)
}

func TestScan_RequiresProcessor(t *testing.T) {
	svc := presets.NewTesting(t)
	_, err := New(svc, nil).Scan(context.Background(), ScanOptions{})
	assert.Error(t, err)
}

func TestScan_CanceledContext(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(svc, nil).Scan(ctx, ScanOptions{DryRun: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRevalidate(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())

	result, err := New(svc, nil).Scan(context.Background(), ScanOptions{Processor: Revalidate(svc)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.TotalProcessed)
	assert.Zero(t, result.TotalFailed)
}

func TestReplay(t *testing.T) {
	svc := presets.NewTesting(t, presets.WithTestFixtures())
	sink := &recordingSink{}

	result, err := New(svc, nil).Scan(context.Background(), ScanOptions{
		Types:     []string{"author", "post"},
		Processor: Replay(sink),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalProcessed)
	assert.Equal(t, []string{"author-maria-santos", "post-mga-panghalip"}, sink.updated)
}
