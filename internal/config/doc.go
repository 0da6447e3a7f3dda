// Package config defines the installation request shared by the provisioning
// workflow and provides helpers to load, validate and save it in YAML format.
//
// The Config type holds the archive source, destination layout root, service
// name, listen port and optional feature flags.
package config
