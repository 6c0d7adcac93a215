// Package server implements the HTTP and WebSocket side of pixelplace.
//
// The Hub is the only goroutine that mutates the board and the chat log.
// Client read pumps decode, validate and rate-limit frames in parallel and
// hand admitted messages to the hub, which commits them and fans the
// resulting events out to every client queue in commit order.
package server
