// Package config provides configuration loading and validation for the
// whereyoufrom responder. It handles the optional YAML config file, including
// its lookup in the user's XDG config directory, with per-section validation.
package config
