// Package winsvc wraps the host service manager behind a small interface:
// register, start, and query status keyed by service name.
package winsvc
