package mirror

import (
	"fmt"

	apperrors "github.com/utafrali/CarCatalog/pkg/errors"
)

// StoreError reports a failed mirror operation. The relational change it
// followed is already committed when one is returned.
type StoreError struct {
	Op    string
	CarID int64
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("mirror %s car %d: %v", e.Op, e.CarID, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{e.Err, apperrors.ErrServiceUnavail}
}
