package policy

import "fmt"

// DataAccessError reports that the policy store could not be reached or
// rejected the query. The underlying cause is kept for errors.Is/As.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("policy store: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// InvalidInputError reports a query that was rejected before reaching the store.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}
