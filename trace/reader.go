package trace

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/log"
)

// ReaderState reports reader progress for diagnostics. It advances on
// every pop and never goes backwards.
type ReaderState int

const (
	StateReady     ReaderState = iota // created, nothing consumed
	StateDraining                     // some consumed, some left
	StateExhausted                    // everything consumed
)

func (s ReaderState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// toleratedSkips are operations the reader may discard while hunting for
// the expected one: bookkeeping the recorded run performed that a replayed
// binary does not necessarily repeat. Anything else out of order is a
// divergence.
var toleratedSkips = map[string]bool{
	hostio.MemoryGrowName:     true,
	hostio.UserEntrypointName: true,
}

// FrameReader hands out one frame's hostios in recorded order. Nested
// frames are never flattened: a popped CallContract carries its callee
// frame, and the caller builds a child reader over it to replay the callee
// before resuming this one.
type FrameReader struct {
	frame *hostio.TraceFrame
	pos   int
}

func NewFrameReader(frame *hostio.TraceFrame) *FrameReader {
	return &FrameReader{frame: frame}
}

// Frame returns the frame this reader walks.
func (r *FrameReader) Frame() *hostio.TraceFrame {
	return r.frame
}

// Address returns the frame's contract address, nil for a
// contract-creation root.
func (r *FrameReader) Address() *common.Address {
	return r.frame.Address
}

// Remaining returns how many recorded hostios have not been consumed.
func (r *FrameReader) Remaining() int {
	return len(r.frame.Steps) - r.pos
}

func (r *FrameReader) State() ReaderState {
	switch {
	case r.pos >= len(r.frame.Steps):
		return StateExhausted
	case r.pos == 0:
		return StateReady
	default:
		return StateDraining
	}
}

func (r *FrameReader) pop() (hostio.Hostio, bool) {
	if r.pos >= len(r.frame.Steps) {
		return hostio.Hostio{}, false
	}
	h := r.frame.Steps[r.pos]
	r.pos++
	return h, true
}

// Next returns the next recorded hostio, which must carry the expected
// operation name. Tolerated bookkeeping operations sitting in front of it
// are discarded with a log line. An empty queue or any other operation is
// fatal: the replayed binary has diverged from the recording, and there is
// no way to resynchronize.
func (r *FrameReader) Next(expected string) (hostio.Hostio, error) {
	for {
		h, ok := r.pop()
		if !ok {
			return hostio.Hostio{}, fmt.Errorf("%w: expected %s", ErrNoNextHostio, expected)
		}
		name := h.Name()
		if name == expected {
			log.Trace(log.ReplayModule, "serving hostio", "hostio", h.String())
			return h, nil
		}
		if toleratedSkips[name] {
			log.Debug(log.ReplayModule, "skipping recorded hostio", "skipped", name, "expected", expected)
			continue
		}
		return hostio.Hostio{}, fmt.Errorf("%w: expected %s, got %s", ErrHostioMismatch, expected, h.String())
	}
}
