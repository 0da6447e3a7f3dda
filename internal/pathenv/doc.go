// Package pathenv edits the machine-wide executable search path.
//
// The edit is modeled as an explicit side-effecting operation behind an
// interface so the orchestrator can be tested with a recording fake.
package pathenv
