// Package cli parses command line flags and merges them with the optional
// config file into the validated startup settings the server runs from.
package cli
