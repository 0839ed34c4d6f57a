// Package media wraps the ffmpeg and ffprobe binaries used to prepare
// meeting recordings for transcription.
package media
