package station

import "fmt"

// NormalizationError reports a single raw provider record that could
// not be turned into a canonical Station. It is record-scoped: the
// batcher counts it and moves on.
type NormalizationError struct {
	Name   string // raw station name, may be empty when the name itself is missing
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	name := e.Name
	if name == "" {
		name = "<unnamed>"
	}
	if e.Err != nil {
		return fmt.Sprintf("normalizing station %q: %s: %v", name, e.Reason, e.Err)
	}
	return fmt.Sprintf("normalizing station %q: %s", name, e.Reason)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// InputError reports invalid search parameters. The search path has no
// partial-failure mode: it either returns a ranked result or fails
// outright with one of these.
type InputError struct {
	Param  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}
