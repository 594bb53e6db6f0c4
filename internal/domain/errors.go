package domain

import "fmt"

// SourceUnavailableError reports that a source adapter could not be
// reached (network, auth, or storage failure). The pipeline does not
// retry; the error propagates to the caller and fails the run.
type SourceUnavailableError struct {
	Source Source
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
