package storage

import "fmt"

// UnknownDriverError indicates a store driver name with no backend.
type UnknownDriverError struct {
	Driver string
}

func (e UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown store driver: %s (valid: csv, mysql, memory)", e.Driver)
}

// RowError describes a CSV row that could not be read as a task.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}
