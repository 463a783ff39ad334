package etl

// Decision is the outcome of an ErrorHandler
type Decision int

const (
	// Fatal stops the pipeline and propagates the error
	Fatal Decision = iota
	// Skip abandons the remaining pipes for the failing batch only
	Skip
)

// String returns a string representation of this Decision
func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "fatal"
}

// An ErrorHandler decides what happens when a pipe fails on a batch
type ErrorHandler interface {
	Decide(err error, rows Rows) Decision
}

// ErrorHandlerFunc adapts a function into an ErrorHandler
type ErrorHandlerFunc func(err error, rows Rows) Decision

// Decide implements ErrorHandler
func (f ErrorHandlerFunc) Decide(err error, rows Rows) Decision {
	return f(err, rows)
}

// ThrowError returns an ErrorHandler which treats every error as Fatal
func ThrowError() ErrorHandler {
	return ErrorHandlerFunc(func(error, Rows) Decision { return Fatal })
}

// SkipRows returns an ErrorHandler which skips the remaining pipes of any failing batch
func SkipRows() ErrorHandler {
	return ErrorHandlerFunc(func(error, Rows) Decision { return Skip })
}
