// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection for hioload-ctx
// binaries and pools.
//
// Provides:
//   - TOML/YAML configuration with defaults and validation
//   - zerolog logger construction
//   - Prometheus collectors for connection pools
//   - Named debug probes for state dumps
package control
