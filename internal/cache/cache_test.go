package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsphere-labs/dsptool/internal/api"
	"github.com/dsphere-labs/dsptool/internal/testutil"
)

type fakeSource struct {
	spaces     []api.Space
	spacesErr  error
	names      map[string]string
	namesErr   error
	objects    map[string][]api.Object
	objectsErr map[string]error
}

func (f *fakeSource) Spaces(context.Context) ([]api.Space, error) {
	return f.spaces, f.spacesErr
}

func (f *fakeSource) SpaceBusinessNames(context.Context) (map[string]string, error) {
	return f.names, f.namesErr
}

func (f *fakeSource) SpaceObjects(_ context.Context, spaceID string) ([]api.Object, error) {
	if err := f.objectsErr[spaceID]; err != nil {
		return nil, err
	}
	return f.objects[spaceID], nil
}

func twoSpaceSource() *fakeSource {
	return &fakeSource{
		spaces: []api.Space{{ID: "SALES"}, {ID: "FINANCE"}},
		names:  map[string]string{"SALES": "Sales Analytics"},
		objects: map[string][]api.Object{
			"SALES":   {{TechnicalName: "V_SALES", Kind: "sap.dwc.view"}},
			"FINANCE": {{TechnicalName: "GL_ACCOUNTS", Kind: "csn.Entity"}},
		},
	}
}

func TestCatalogStartsEmpty(t *testing.T) {
	c := New(testutil.NewTestLogger(t))
	assert.Equal(t, StateEmpty, c.State())

	_, ok := c.Spaces()
	assert.False(t, ok)
	_, ok = c.Objects("SALES")
	assert.False(t, ok)
	_, ok = c.BusinessName("SALES")
	assert.False(t, ok)
}

func TestCatalogLoad(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	var percents []int
	err := c.Load(context.Background(), twoSpaceSource(), func(pct int, _ string) {
		percents = append(percents, pct)
	})
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, c.State())
	assert.False(t, c.LoadedAt().IsZero())

	spaces, ok := c.Spaces()
	require.True(t, ok)
	assert.Len(t, spaces, 2)

	objs, ok := c.Objects("SALES")
	require.True(t, ok)
	require.Len(t, objs, 1)
	assert.Equal(t, "V_SALES", objs[0].TechnicalName)

	name, ok := c.BusinessName("SALES")
	require.True(t, ok)
	assert.Equal(t, "Sales Analytics", name)

	// Unnamed spaces fall back to their ID.
	name, ok = c.BusinessName("FINANCE")
	require.True(t, ok)
	assert.Equal(t, "FINANCE", name)

	require.NotEmpty(t, percents)
	assert.Equal(t, 0, percents[0])
	assert.Equal(t, 100, percents[len(percents)-1])

	stats := c.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "SALES", stats[0].SpaceID)
	assert.Equal(t, 1, stats[0].Objects)
}

func TestCatalogLoadSpacesFailure(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	src := &fakeSource{spacesErr: errors.New("boom")}
	err := c.Load(context.Background(), src, nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
	assert.Error(t, c.LastError())

	_, ok := c.Spaces()
	assert.False(t, ok)
}

func TestCatalogLoadToleratesUnreadableSpace(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	src := twoSpaceSource()
	src.objectsErr = map[string]error{"FINANCE": errors.New("forbidden")}

	require.NoError(t, c.Load(context.Background(), src, nil))
	assert.Equal(t, StateLoaded, c.State())

	objs, ok := c.Objects("FINANCE")
	require.True(t, ok)
	assert.Empty(t, objs)

	stats := c.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "forbidden", stats[1].Err)
}

func TestCatalogLoadToleratesMissingBusinessNames(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	src := twoSpaceSource()
	src.namesErr = errors.New("endpoint gone")

	require.NoError(t, c.Load(context.Background(), src, nil))

	name, ok := c.BusinessName("SALES")
	require.True(t, ok)
	assert.Equal(t, "SALES", name)
}

func TestCatalogReloadAfterFailure(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	require.Error(t, c.Load(context.Background(), &fakeSource{spacesErr: errors.New("down")}, nil))
	assert.Equal(t, StateFailed, c.State())

	require.NoError(t, c.Load(context.Background(), twoSpaceSource(), nil))
	assert.Equal(t, StateLoaded, c.State())
	assert.NoError(t, c.LastError())
}

func TestCatalogInvalidate(t *testing.T) {
	c := New(testutil.NewTestLogger(t))
	require.NoError(t, c.Load(context.Background(), twoSpaceSource(), nil))

	c.Invalidate()
	assert.Equal(t, StateEmpty, c.State())
	assert.True(t, c.LoadedAt().IsZero())
	_, ok := c.Spaces()
	assert.False(t, ok)
}

func TestCatalogRestore(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	taken := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.Restore(Data{
		Spaces:        []api.Space{{ID: "SALES"}},
		BusinessNames: map[string]string{"SALES": "Sales"},
		Objects:       map[string][]api.Object{"SALES": {{TechnicalName: "V_SALES"}}},
	}, taken)

	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, taken, c.LoadedAt())

	data, ok := c.Snapshot()
	require.True(t, ok)
	assert.Len(t, data.Spaces, 1)
}

func TestCatalogLoadCanceled(t *testing.T) {
	c := New(testutil.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Load(ctx, twoSpaceSource(), nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
}
