package mux

import (
	"errors"
	"fmt"

	"github.com/progrium/bpmux-go/mux/frame"
)

var (
	// ErrFull is returned by Multiplex when the channel table holds
	// Config.MaxOpen channels or no channel id is free.
	ErrFull = errors.New("mux: channel table full")

	// ErrClosed is returned when the carrier or the channel has been closed.
	ErrClosed = errors.New("mux: closed")

	// ErrFinished is returned when the write side of the carrier or of a
	// channel is done.
	ErrFinished = errors.New("mux: finished")

	// ErrEnded is returned by Multiplex when the read side of the carrier is done.
	ErrEnded = errors.New("mux: ended")

	// ErrWriteInProgress is returned by Channel.Write when another write on
	// the same channel has not completed yet.
	ErrWriteInProgress = errors.New("mux: write in progress")

	// ErrHandshakeSent is returned when sending a handshake for a channel
	// that has already sent one.
	ErrHandshakeSent = errors.New("mux: handshake already sent")

	// ErrPeerError is reported on a channel whose peer ended it with
	// an ERROR_END message.
	ErrPeerError = errors.New("mux: peer error")

	// ErrTooMuchData is reported on a channel that received more data than
	// its read high-water mark allows.
	ErrTooMuchData = errors.New("mux: too much data")

	// ErrHeaderTooBig is reported when a header frame exceeds
	// Config.MaxHeaderSize.
	ErrHeaderTooBig = errors.New("mux: header too big")

	errExpectedHandshake = errors.New("expected handshake")
	errUnknownType       = errors.New("unknown type")
)

// ProtocolError describes a malformed or unexpected frame from the peer.
// The frame is dropped and the mux keeps running.
type ProtocolError struct {
	Channel    uint32
	HasChannel bool
	Type       frame.Type
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.HasChannel {
		return fmt.Sprintf("mux: protocol error on channel %d: %v, got: %d", e.Channel, e.Err, uint8(e.Type))
	}
	return fmt.Sprintf("mux: protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// CarrierDoneError is the error a channel is destroyed with when the carrier
// finished or ended before the channel did.
type CarrierDoneError struct {
	// Ended is true when the read side of the carrier ended, false when
	// its write side finished.
	Ended bool
}

func (e *CarrierDoneError) Error() string {
	if e.Ended {
		return "mux: carrier stream ended before end message received"
	}
	return "mux: carrier stream finished before channel finished"
}

// IsCarrierDone reports whether err was caused by the carrier finishing or
// ending underneath a channel.
func IsCarrierDone(err error) bool {
	var done *CarrierDoneError
	return errors.As(err, &done)
}
