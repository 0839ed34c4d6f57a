// Package notifications delivers push notifications about pipeline runs
// through ntfy.
package notifications
