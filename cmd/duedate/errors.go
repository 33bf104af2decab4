package main

import "fmt"

// InvalidIDError indicates a task ID argument that isn't a positive integer.
type InvalidIDError struct {
	Value string
}

func (e InvalidIDError) Error() string {
	return fmt.Sprintf("invalid task id: %s (must be a positive integer)", e.Value)
}
