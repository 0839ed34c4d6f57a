// Package lark talks to the Lark Minutes API: meeting metadata lookup and
// recording downloads, with OAuth token refresh.
package lark
