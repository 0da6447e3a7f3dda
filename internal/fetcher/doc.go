// Package fetcher downloads a release archive to a temporary file.
//
// There is no retry logic: acquisition is attempted exactly once per
// invocation and failures propagate to the orchestrator as fatal errors.
package fetcher
