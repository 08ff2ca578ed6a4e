// Package mux multiplexes byte stream channels over a single ordered,
// reliable carrier such as a TCP connection, giving every channel its own
// flow control window.
//
// A channel's window is the number of unread bytes its reader is willing to
// hold. The writer never sends more than the peer advertised, so a channel
// whose reader stops reading fills only its own window and the remaining
// channels keep flowing. When several channels have data to send, each
// scheduling pass shares the carrier's free buffer space equally among
// them.
//
// Handlers registered with the On methods run on the goroutines that read
// from and write to the carrier. They must not block; in particular they
// must not read from or write to channels directly.
package mux
