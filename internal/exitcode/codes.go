package exitcode

// Exit codes for the sweep CLI.
// A scheduler can use these to decide whether to retry.
const (
	// Success - sweep completed, every orphan cleaned (or reported in dry-run)
	Success = 0

	// ConfigError - missing or invalid configuration or flags
	// Don't retry: fix the config first
	ConfigError = 1

	// StorageError - could not reach the output bucket or list indexes
	// Retry with backoff
	StorageError = 2

	// PartialFailure - some cache or index deletions failed
	// Safe to rerun: deletions are idempotent
	PartialFailure = 3
)
