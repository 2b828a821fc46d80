package storage

import (
	"fmt"
	"regexp"
)

// outputKeyPattern matches keys written by the indexing server.
// The project token may contain hyphens (GitHub repository names do).
var outputKeyPattern = regexp.MustCompile(`^([\w\d]+)-([\w\d-]+)-output\.txt$`)

const outputSuffix = "-output.txt"

// OutputKey identifies the output file of one indexed project.
type OutputKey struct {
	Owner   string
	Project string
}

// ParseOutputKey extracts owner and project from an object key.
// It reports false when the key is not an output file.
func ParseOutputKey(key string) (OutputKey, bool) {
	m := outputKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return OutputKey{}, false
	}
	return OutputKey{Owner: m[1], Project: m[2]}, true
}

// ParseResourceID is the inverse of ResourceID: it splits "<owner>-<project>"
// using the same rules as ParseOutputKey.
func ParseResourceID(id string) (OutputKey, bool) {
	return ParseOutputKey(id + outputSuffix)
}

// ResourceID is the name shared by the cache entry and the vector index.
func (k OutputKey) ResourceID() string {
	return fmt.Sprintf("%s-%s", k.Owner, k.Project)
}

// Key returns the object key of the output file.
func (k OutputKey) Key() string {
	return k.ResourceID() + outputSuffix
}
