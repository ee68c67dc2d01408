package pagination

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
)

func TestMemoized(t *testing.T) {
	c := newCatalog(45)
	pages := cache.NewExpiring[string, Page[string]](cache.DefaultConfig("memo-test"))
	fetcher := Memoized[string](c, pages)
	ctx := context.Background()

	first, err := fetcher.FetchPage(ctx, 1, 20, shoes)
	require.NoError(t, err)
	again, err := fetcher.FetchPage(ctx, 1, 20, shoes)
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, 1, c.callCount())
	assert.Equal(t, 1, pages.Len())

	_, err = fetcher.FetchPage(ctx, 2, 20, shoes)
	require.NoError(t, err)
	sorted := shoes
	sorted.Sort = "newest"
	_, err = fetcher.FetchPage(ctx, 1, 20, sorted)
	require.NoError(t, err)
	assert.Equal(t, 3, c.callCount(), "page index and query are part of the key")
}

func TestMemoized_ErrorsNotCached(t *testing.T) {
	c := newCatalog(45)
	c.setFail(errors.New("down"))
	pages := cache.NewExpiring[string, Page[string]](cache.DefaultConfig("memo-test-errors"))
	fetcher := Memoized[string](c, pages)

	_, err := fetcher.FetchPage(context.Background(), 1, 20, shoes)
	require.Error(t, err)
	assert.Equal(t, 0, pages.Len())

	c.setFail(nil)
	page, err := fetcher.FetchPage(context.Background(), 1, 20, shoes)
	require.NoError(t, err)
	assert.Len(t, page.Rows, 20)
	assert.Equal(t, 2, c.callCount())
}
