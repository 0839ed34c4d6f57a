// Package gemini wraps the Google Generative Language REST API for file
// uploads and content generation.
package gemini
