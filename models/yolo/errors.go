package yolo

import "fmt"

// ShapeError reports network output that does not match the configured grid.
// It is a contract violation by the producer of the output, never a data
// condition to recover from.
type ShapeError struct {
	What     string
	Expected int
	Actual   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected length %d, got %d", e.What, e.Expected, e.Actual)
}
