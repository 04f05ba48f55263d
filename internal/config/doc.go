// Package config loads the ksense configuration.
//
// Settings are layered: the built-in defaults, then an optional TOML, YAML
// or JSON file, then KSENSE_* environment variables. The merged document
// is checked against an embedded JSON schema before it is decoded, and the
// decoded Config is validated once more for rules the schema cannot express.
//
// A Watcher reloads a configuration file when it changes on disk.
package config
