// Package transcription turns one recording into one transcript by splitting
// it into size-bounded segments, transcribing the segments in sequential
// batches of bounded concurrency, and joining the results in source order.
//
// A failed segment fails the whole call; no partial transcript is returned.
package transcription
