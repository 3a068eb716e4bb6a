package acquire

type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeSoftEmpty
	outcomeHardError
	outcomeFatal
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeSuccess:
		return "success"
	case outcomeSoftEmpty:
		return "soft_empty"
	case outcomeHardError:
		return "hard_error"
	case outcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// outcome is the result of a single attempt, it is the only thing the
// retry loop looks at.
type outcome struct {
	kind   outcomeKind
	markup string
	err    error
}

func success(markup string) outcome {
	return outcome{kind: outcomeSuccess, markup: markup}
}

func softEmpty(attempt int) outcome {
	return outcome{
		kind: outcomeSoftEmpty,
		err:  &AttemptError{Attempt: attempt, Kind: ErrEmptyContent},
	}
}

func hardError(attempt int, kind, err error) outcome {
	return outcome{
		kind: outcomeHardError,
		err:  &AttemptError{Attempt: attempt, Kind: kind, Err: err},
	}
}

func fatal(err error) outcome {
	return outcome{kind: outcomeFatal, err: err}
}
