// Package api defines the JSON views of runs shared by the daemon HTTP
// surface and the CLI.
package api
