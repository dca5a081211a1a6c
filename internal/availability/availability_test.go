package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/rezervator/internal/model"
)

type memSource struct {
	quantities   map[int64]int
	reservations []model.Reservation
}

func (m *memSource) ItemQuantity(_ context.Context, itemID int64) (int, error) {
	q, ok := m.quantities[itemID]
	if !ok {
		return 0, ErrItemNotFound
	}
	return q, nil
}

func (m *memSource) ItemReservations(_ context.Context, itemID int64, _, _ model.Date) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range m.reservations {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memSource) reserve(itemID int64, qty int, start, end string) {
	m.reservations = append(m.reservations, model.Reservation{
		ItemID:    itemID,
		Quantity:  qty,
		StartDate: model.MustParseDate(start),
		EndDate:   model.MustParseDate(end),
	})
}

func d(s string) model.Date { return model.MustParseDate(s) }

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"disjoint before", "2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04", false},
		{"touching end", "2024-06-01", "2024-06-03", "2024-06-03", "2024-06-04", true},
		{"contained", "2024-06-01", "2024-06-10", "2024-06-03", "2024-06-04", true},
		{"single day inside", "2024-06-04", "2024-06-04", "2024-06-01", "2024-06-05", true},
		{"single day equal", "2024-06-04", "2024-06-04", "2024-06-04", "2024-06-04", true},
		{"single day outside", "2024-06-06", "2024-06-06", "2024-06-01", "2024-06-05", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(d(tt.aStart), d(tt.aEnd), d(tt.bStart), d(tt.bEnd))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Overlaps(d(tt.bStart), d(tt.bEnd), d(tt.aStart), d(tt.aEnd)), "not symmetric")
		})
	}
}

func TestOverlapsSymmetryExhaustive(t *testing.T) {
	base := d("2024-06-01")
	for a := 0; a < 6; a++ {
		for b := a; b < 6; b++ {
			for c := 0; c < 6; c++ {
				for e := c; e < 6; e++ {
					aS, aE, cS, cE := base.AddDays(a), base.AddDays(b), base.AddDays(c), base.AddDays(e)
					want := false
					for day := 0; day < 6; day++ {
						x := base.AddDays(day)
						if !x.Before(aS) && !x.After(aE) && !x.Before(cS) && !x.After(cE) {
							want = true
						}
					}
					require.Equal(t, want, Overlaps(aS, aE, cS, cE), "%s..%s vs %s..%s", aS, aE, cS, cE)
					require.Equal(t, Overlaps(aS, aE, cS, cE), Overlaps(cS, cE, aS, aE))
				}
			}
		}
	}
}

func TestReservedAndClamp(t *testing.T) {
	rs := []model.Reservation{
		{Quantity: 4, StartDate: d("2024-06-01"), EndDate: d("2024-06-05")},
		{Quantity: 6, StartDate: d("2024-06-03"), EndDate: d("2024-06-10")},
	}
	assert.Equal(t, 0, Reserved(nil, d("2024-06-01"), d("2024-06-02")))
	assert.Equal(t, 4, Reserved(rs, d("2024-06-01"), d("2024-06-02")))
	assert.Equal(t, 10, Reserved(rs, d("2024-06-04"), d("2024-06-04")))
	assert.Equal(t, 6, Reserved(rs, d("2024-06-06"), d("2024-06-06")))
	assert.Equal(t, 0, Reserved(rs, d("2024-06-11"), d("2024-06-20")))

	assert.Equal(t, 0, Clamp(-3))
	assert.Equal(t, 5, Clamp(5))
}

func TestChairScenario(t *testing.T) {
	ctx := context.Background()
	const chair = 1
	src := &memSource{quantities: map[int64]int{chair: 10}}
	e := New(src)

	ok, err := e.CanReserve(ctx, chair, 4, d("2024-06-01"), d("2024-06-05"))
	require.NoError(t, err)
	require.True(t, ok, "reservation A")
	src.reserve(chair, 4, "2024-06-01", "2024-06-05")

	avail, err := e.AvailableOn(ctx, chair, d("2024-06-03"))
	require.NoError(t, err)
	assert.Equal(t, 6, avail)

	ok, err = e.CanReserve(ctx, chair, 6, d("2024-06-03"), d("2024-06-10"))
	require.NoError(t, err)
	require.True(t, ok, "reservation B")
	src.reserve(chair, 6, "2024-06-03", "2024-06-10")

	avail, err = e.AvailableOn(ctx, chair, d("2024-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 0, avail)

	ok, err = e.CanReserve(ctx, chair, 1, d("2024-06-04"), d("2024-06-04"))
	require.NoError(t, err)
	assert.False(t, ok, "reservation C")

	avail, err = e.AvailableOn(ctx, chair, d("2024-06-06"))
	require.NoError(t, err)
	assert.Equal(t, 4, avail)
	ok, err = e.CanReserve(ctx, chair, 5, d("2024-06-06"), d("2024-06-06"))
	require.NoError(t, err)
	assert.False(t, ok, "reservation D")
}

func TestAvailableQuantityNotClamped(t *testing.T) {
	ctx := context.Background()
	src := &memSource{quantities: map[int64]int{1: 2}}
	src.reserve(1, 2, "2024-06-01", "2024-06-03")
	src.reserve(1, 1, "2024-06-02", "2024-06-04")

	avail, err := New(src).AvailableQuantity(ctx, 1, d("2024-06-02"), d("2024-06-02"))
	require.NoError(t, err)
	assert.Equal(t, -1, avail)
}

func TestUnknownItem(t *testing.T) {
	_, err := New(&memSource{}).AvailableOn(context.Background(), 99, d("2024-06-01"))
	assert.ErrorIs(t, err, ErrItemNotFound)
}
