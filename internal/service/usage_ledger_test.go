package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/reelpick/internal/model"
)

func TestUsageLedgerConcurrentCalls(t *testing.T) {
	store := newTestStore(t)
	ledger := NewUsageLedger(store.Usage)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			provider := model.ProviderTMDB
			if i%5 == 0 {
				provider = model.ProviderOMDB
			}
			ledger.RecordCall(ctx, provider)
		}()
	}
	wg.Wait()

	entries, err := ledger.Summary(ctx, 1)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, entry := range entries {
		counts[entry.Provider] = entry.Calls
	}
	assert.Equal(t, map[string]int{model.ProviderTMDB: 40, model.ProviderOMDB: 10}, counts)
}

func TestUsageLedgerSummaryWindow(t *testing.T) {
	store := newTestStore(t)
	ledger := NewUsageLedger(store.Usage)
	ledger.now = func() time.Time { return time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		require.NoError(t, store.Usage.Increment(ctx, date, model.ProviderTMDB))
	}

	entries, err := ledger.Summary(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-05-03", entries[0].Date)
	assert.Equal(t, "2024-05-02", entries[1].Date)

	entries, err = ledger.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUsageLedgerNilIsNoop(t *testing.T) {
	var ledger *UsageLedger
	assert.NotPanics(t, func() { ledger.RecordCall(context.Background(), model.ProviderTMDB) })

	entries, err := NewUsageLedger(nil).Summary(context.Background(), 7)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
