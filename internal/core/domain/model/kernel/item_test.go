package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment/internal/core/domain/model/kernel"
	"fulfillment/internal/pkg/errs"
)

func mustItem(t *testing.T, id int64, description string, count int32) kernel.Item {
	t.Helper()
	it, err := kernel.NewItem(id, description, count)
	require.NoError(t, err)
	return it
}

func TestNewItem(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		it, err := kernel.NewItem(3, "apple", 2)

		require.NoError(t, err)
		require.NoError(t, it.Validate())
		assert.Equal(t, int64(3), it.ID())
		assert.Equal(t, "apple", it.Description())
		assert.Equal(t, int32(2), it.Count())
		assert.Equal(t, "2xapple(3)", it.String())
	})

	t.Run("collects_every_problem", func(t *testing.T) {
		_, err := kernel.NewItem(-1, "", 0)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		require.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.Contains(t, err.Error(), "count")
		assert.Contains(t, err.Error(), "description")
	})

	t.Run("zero_value_is_not_constructed", func(t *testing.T) {
		var it kernel.Item
		require.ErrorIs(t, it.Validate(), errs.ErrValueIsRequired)
	})
}

func TestSameItems(t *testing.T) {
	apple := mustItem(t, 1, "apple", 2)
	pear := mustItem(t, 2, "pear", 1)

	tests := []struct {
		name string
		a    []kernel.Item
		b    []kernel.Item
		want bool
	}{
		{name: "identical", a: []kernel.Item{apple, pear}, b: []kernel.Item{apple, pear}, want: true},
		{name: "order_ignored", a: []kernel.Item{apple, pear}, b: []kernel.Item{pear, apple}, want: true},
		{
			name: "description_ignored",
			a:    []kernel.Item{apple},
			b:    []kernel.Item{mustItem(t, 1, "Apple", 2)},
			want: true,
		},
		{name: "count_differs", a: []kernel.Item{apple}, b: []kernel.Item{mustItem(t, 1, "apple", 3)}, want: false},
		{name: "length_differs", a: []kernel.Item{apple}, b: []kernel.Item{apple, pear}, want: false},
		{name: "both_empty", a: nil, b: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kernel.SameItems(tt.a, tt.b))
		})
	}
}
