package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCityColumn is matched by errors.Is for any table lacking the CITY column.
var ErrMissingCityColumn = errors.New("expected CITY column not found")

// MissingColumnError reports which columns a table did have.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("expected %q column not found, available columns: [%s]",
		e.Column, strings.Join(e.Available, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingCityColumn && e.Column == CityColumn
}
