package exceptions

type causeError struct {
	error
	cause error
}

func (e *causeError) Error() string {
	return e.error.Error() + ": " + e.cause.Error()
}

func (e *causeError) Unwrap() []error {
	return []error{e.error, e.cause}
}
