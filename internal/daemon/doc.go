// Package daemon hosts the long-running service: webhook ingress, the HTTP
// API, and single-instance enforcement.
package daemon
