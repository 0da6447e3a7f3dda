// Package archive installs the engine's release archive into the destination
// layout by invoking the host's generic extraction utility with path
// exclusion and strip-leading-components semantics.
package archive
