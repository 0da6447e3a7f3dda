// Package provision orchestrates the installation workflow: destination
// validation, archive acquisition, extraction, data cluster initialization,
// port override, service registration and the final running-state check.
//
// Execution is strictly sequential with no rollback; the refusal to touch an
// existing destination root is the only safeguard against prior state.
package provision
