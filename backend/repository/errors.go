package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// DataFetchError reports a failed read from one of the stores.
type DataFetchError struct {
	Source string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

func fetchErr(source string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &DataFetchError{Source: source, Err: ErrNotFound}
	}
	return &DataFetchError{Source: source, Err: err}
}
