// Package config provides configuration structures and utilities for datalens.
// It defines the scan configuration that fully determines an audit result,
// the command-level options that control report output, and the YAML
// configuration file holding named dataset definitions.
package config
