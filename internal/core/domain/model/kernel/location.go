package kernel

import (
	"errors"
	"fmt"

	"fulfillment/internal/pkg/errs"
	"fulfillment/internal/pkg/guard"
)

// ErrLocationIsNotConstructed is returned when a zero-value Location is used.
var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError(
	"location must be created via NewLocation")

// Location is a point on the World simulator grid. The simulator accepts any
// signed 32-bit coordinate, so no bounds are enforced beyond construction.
//
// Example:
//
//	loc := kernel.NewLocation(5, -7)
//	fmt.Println(loc) // Location(5,-7)
type Location struct { //nolint:recvcheck //using for validation
	x     int32
	y     int32
	guard guard.ConstructorGuard
}

// NewLocation creates a Location with the given coordinates.
func NewLocation(x, y int32) Location {
	return Location{x: x, y: y, guard: guard.NewConstructorGuard()}
}

// Validate reports whether the Location was built by NewLocation.
func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

func (l Location) X() int32 {
	return l.x
}

func (l Location) Y() int32 {
	return l.y
}

// String implements fmt.Stringer.
func (l Location) String() string {
	return fmt.Sprintf("Location(%d,%d)", l.x, l.y)
}

// IsEqual compares two locations. Both must be constructed.
func (l Location) IsEqual(other Location) (bool, error) {
	if err := errors.Join(l.Validate(), other.Validate()); err != nil {
		return false, err
	}
	return l == other, nil
}
