// Package pipeline orchestrates one meeting-processing run from recording
// download through transcript, summary, tagging, and persistence.
package pipeline
