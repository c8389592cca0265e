package queue

import "errors"

// fatalError marks a handler failure that retrying cannot fix, such as a
// malformed payload. The worker dead-letters these immediately.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return "fatal: " + e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}

// Fatal wraps err so the worker dead-letters the task instead of retrying
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err was marked with Fatal anywhere in its chain
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
