package storage

import "fmt"

// ConnectionError reports that no working handle to the store could be
// obtained. It is not retried.
type ConnectionError struct {
	Driver Driver
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("acquire %s connection: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// OperationError reports a failed statement after a handle was obtained.
// Op names the attempted operation, e.g. "insert category".
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
