package refine

import "fmt"

// Failure reports that the refinement engine could not produce a usable
// structured result: the process failed to run, timed out, exited nonzero,
// or returned text with no parsable JSON object. The controller reports it
// to the user and leaves draft state untouched.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("refinement failed: %s: %v", f.Reason, f.Err)
	}
	return fmt.Sprintf("refinement failed: %s", f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

func failure(reason string, err error) *Failure {
	return &Failure{Reason: reason, Err: err}
}
