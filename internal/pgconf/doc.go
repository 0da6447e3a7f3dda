// Package pgconf performs the single line-oriented edit this tool makes to
// the engine's generated configuration: overriding the listen port.
package pgconf
