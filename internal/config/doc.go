// Package config resolves the codectx configuration in three layers:
// compiled defaults, an optional YAML file, and CODECTX_* environment
// overrides (with .env support for local runs).
package config
