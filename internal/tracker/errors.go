package tracker

import "fmt"

// CreateFailure reports that issue creation itself failed: the CLI could
// not run, exited nonzero, or returned nothing usable. The controller
// reports it to the user and keeps the draft so create can be retried.
type CreateFailure struct {
	Detail string
	Err    error
}

func (f *CreateFailure) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("issue creation failed: %s", f.Detail)
	}
	return fmt.Sprintf("issue creation failed: %v", f.Err)
}

func (f *CreateFailure) Unwrap() error { return f.Err }

// BoardFailure reports that the created issue could not be registered on
// the tracking board. The issue exists; this is logged, never surfaced as
// an overall create failure.
type BoardFailure struct {
	URL string
	Err error
}

func (f *BoardFailure) Error() string {
	return fmt.Sprintf("board registration failed for %s: %v", f.URL, f.Err)
}

func (f *BoardFailure) Unwrap() error { return f.Err }
