package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/bonus-agreements/internal/model"
)

type fakeSource struct {
	suppliersErr error
	typesErr     error
	scalesErr    error
	calls        atomic.Int32
	// barrier makes every list call wait until all three have started.
	barrier *sync.WaitGroup
}

func (f *fakeSource) wait() {
	f.calls.Add(1)
	if f.barrier != nil {
		f.barrier.Done()
		f.barrier.Wait()
	}
}

func (f *fakeSource) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	f.wait()
	return []model.Supplier{{Code: "S1", Name: "Поставщик 1"}}, f.suppliersErr
}

func (f *fakeSource) ListAgreementTypes(ctx context.Context) ([]model.AgreementType, error) {
	f.wait()
	return []model.AgreementType{{Code: "T1", Name: "Бонус"}}, f.typesErr
}

func (f *fakeSource) ListScales(ctx context.Context) ([]model.Scale, error) {
	f.wait()
	return []model.Scale{
		{Code: "01", Name: "% от продаж", Grid: model.GridPercent},
		{Code: "03", Name: "Фиксированная сумма, руб", Grid: model.GridFix},
	}, f.scalesErr
}

func TestProviderLoadIssuesFetchesTogether(t *testing.T) {
	barrier := &sync.WaitGroup{}
	barrier.Add(3)
	src := &fakeSource{barrier: barrier}
	p := NewProvider(src, nil, 0, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
	assert.Len(t, c.Suppliers(), 1)
	assert.Len(t, c.AgreementTypes(), 1)
	assert.Len(t, c.Scales(), 2)
}

func TestProviderLoadSingleGenericError(t *testing.T) {
	for _, src := range []*fakeSource{
		{suppliersErr: errors.New("boom")},
		{typesErr: errors.New("boom")},
		{scalesErr: errors.New("boom")},
	} {
		p := NewProvider(src, nil, 0, zerolog.Nop())
		c, err := p.Load(context.Background())
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrCatalogUnavailable)
	}
}

func TestPendingLoad(t *testing.T) {
	p := NewProvider(&fakeSource{}, nil, 0, zerolog.Nop())
	pending := p.Go(context.Background())
	c, err := pending.Wait()
	require.NoError(t, err)
	assert.False(t, pending.Loading())
	assert.NotNil(t, c)
}

func TestCatalogResolveGrid(t *testing.T) {
	c, err := NewProvider(&fakeSource{}, nil, 0, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)

	grid, err := c.ResolveGrid("01")
	require.NoError(t, err)
	assert.Equal(t, model.GridPercent, grid)

	grid, err = c.ResolveGrid("03")
	require.NoError(t, err)
	assert.Equal(t, model.GridFix, grid)

	_, err = c.ResolveGrid("42")
	assert.ErrorIs(t, err, ErrUnknownScale)
}

func TestCatalogIsImmutable(t *testing.T) {
	suppliers := []model.Supplier{{Code: "S1", Name: "A"}}
	c := New(suppliers, nil, nil)
	suppliers[0].Name = "changed"

	got := c.Suppliers()
	assert.Equal(t, "A", got[0].Name)
	got[0].Name = "changed again"

	s, ok := c.Supplier("S1")
	require.True(t, ok)
	assert.Equal(t, "A", s.Name)
}

func TestCatalogEnrich(t *testing.T) {
	c := New(nil, nil, []model.Scale{{Code: "01", Name: "% от продаж", Grid: model.GridPercent}})
	a := c.Enrich(model.Agreement{ScaleCode: "01"})
	assert.Equal(t, "% от продаж", a.ScaleName)
	assert.Equal(t, model.GridPercent, a.Grid)

	b := c.Enrich(model.Agreement{ScaleCode: "01", Grid: model.GridFix, ScaleName: "custom"})
	assert.Equal(t, model.GridFix, b.Grid)
	assert.Equal(t, "custom", b.ScaleName)
}
