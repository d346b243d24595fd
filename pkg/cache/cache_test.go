package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(months int) *models.AmortizationResult {
	return &models.AmortizationResult{
		Schedule: []models.AmortizationRow{},
		Summary: models.AmortizationSummary{
			TotalPaid:  decimal.NewFromFloat(1234.56),
			Months:     months,
			PayoffDate: time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestLRUCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(10, time.Hour)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", result(3)))
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 3, got.Summary.Months)

	require.NoError(t, c.Set(ctx, "a", result(4)))
	got, _ = c.Get(ctx, "a")
	assert.Equal(t, 4, got.Summary.Months)
	assert.Equal(t, 1, c.Size())

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	require.NoError(t, c.Delete(ctx, "missing"))
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2, time.Hour)

	c.Set(ctx, "a", result(1))
	c.Set(ctx, "b", result(2))
	c.Get(ctx, "a")
	c.Set(ctx, "c", result(3))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache(10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", result(1))
	c.Set(ctx, "b", result(2))

	now = now.Add(30 * time.Second)
	c.Set(ctx, "c", result(3))

	now = now.Add(45 * time.Second)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	_, ok := c.Get(ctx, "c")
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.Get(ctx, "c")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(50, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%26))
				c.Set(ctx, key, result(j))
				c.Get(ctx, key)
				if j%10 == 0 {
					c.Delete(ctx, key)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 26)
}

type countingCleaner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCleaner) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1
}

func TestManager_SweepsRegisteredCaches(t *testing.T) {
	cleaner := &countingCleaner{}
	swept := make(chan int, 16)

	m := NewManager(func(removed int) {
		select {
		case swept <- removed:
		default:
		}
	})
	m.Register(cleaner)
	m.StartCleanup(5 * time.Millisecond)

	select {
	case removed := <-swept:
		assert.Equal(t, 1, removed)
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup never ran")
	}
	m.Stop()

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.GreaterOrEqual(t, cleaner.calls, 1)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "debt-1", result(7)))
	got, ok := c.Get(ctx, "debt-1")
	require.True(t, ok)
	assert.Equal(t, 7, got.Summary.Months)
	assert.True(t, got.Summary.TotalPaid.Equal(decimal.NewFromFloat(1234.56)))
	assert.True(t, got.Summary.PayoffDate.Equal(time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, c.Delete(ctx, "debt-1"))
	_, ok = c.Get(ctx, "debt-1")
	assert.False(t, ok)
}
