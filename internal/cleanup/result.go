package cleanup

import "fmt"

// Outcome classifies a single store deletion.
type Outcome int

const (
	// Deleted - the entry existed and was removed
	Deleted Outcome = iota
	// NotFound - nothing to remove, treated as success
	NotFound
	// Failed - the store call errored; Err holds the cause
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what store adapters return. A failure travels in Err and is
// never returned as an error across the per-record boundary.
type Result struct {
	Outcome Outcome
	Err     error
}

// DeletedResult reports that the resource existed and was removed.
func DeletedResult() Result { return Result{Outcome: Deleted} }

// NotFoundResult reports that there was nothing to remove.
func NotFoundResult() Result { return Result{Outcome: NotFound} }

// FailedResult reports that the store call failed with err.
func FailedResult(err error) Result {
	return Result{Outcome: Failed, Err: err}
}
