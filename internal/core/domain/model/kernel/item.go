package kernel

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrItemIsNotConstructed is returned when a zero-value Item is used.
var ErrItemIsNotConstructed = errs.NewValueIsRequiredError("item must be created via NewItem")

// Item is one product line of a purchase: the product id known to the World
// simulator, its description and the number of units.
type Item struct { //nolint:recvcheck //using for validation
	id          int64
	description string
	count       int32
	guard       guard.ConstructorGuard
}

// NewItem creates an Item.
//
// Parameters:
//   - id: product id, must not be negative
//   - description: product description, must not be empty
//   - count: number of units, must be positive
//
// Returns:
//   - Item: a valid item
//   - error: all validation failures joined together
func NewItem(id int64, description string, count int32) (Item, error) {
	var problems []error
	if id < 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("id",
			fmt.Errorf("product id must not be negative, got %d", id)))
	}
	if description == "" {
		problems = append(problems, errs.NewValueIsRequiredError("description"))
	}
	if count <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("count",
			fmt.Errorf("count must be positive, got %d", count)))
	}
	if err := errors.Join(problems...); err != nil {
		return Item{}, err
	}

	return Item{id: id, description: description, count: count, guard: guard.NewConstructorGuard()}, nil
}

// Validate reports whether the Item was built by NewItem.
func (i Item) Validate() error {
	return i.guard.Validate(ErrItemIsNotConstructed)
}

func (i Item) ID() int64 {
	return i.id
}

func (i Item) Description() string {
	return i.description
}

func (i Item) Count() int32 {
	return i.count
}

func (i Item) String() string {
	return fmt.Sprintf("%dx%s(%d)", i.count, i.description, i.id)
}

// SameItems reports whether two item lists carry the same products in the same
// quantities, ignoring order. Descriptions are not compared since the World
// simulator may echo them differently.
func SameItems(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	return slices.Equal(tally(a), tally(b))
}

type line struct {
	id    int64
	count int64
}

func tally(items []Item) []line {
	totals := make(map[int64]int64, len(items))
	for _, it := range items {
		totals[it.id] += int64(it.count)
	}
	out := make([]line, 0, len(totals))
	for id, n := range totals {
		out = append(out, line{id: id, count: n})
	}
	slices.SortFunc(out, func(x, y line) int { return cmp.Compare(x.id, y.id) })
	return out
}
