// Package cli is responsible for parsing command-line arguments and
// dispatching them to the application. It is the primary entry point for
// user interaction from the command line.
package cli
