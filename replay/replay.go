// Package replay drives a locally built contract binary against an
// acquired trace. The binary's host-call intercepts consume the recorded
// hostios one by one; the first out-of-order call ends the replay.
package replay

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/log"
	"github.com/colorfulnotion/stylus-replay/trace"
)

// Outcome is the status the entrypoint reports back. 0 and 1 are defined;
// everything else is passed through untouched.
type Outcome uint32

const (
	OutcomeSuccess Outcome = 0
	OutcomeRevert  Outcome = 1
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRevert:
		return "revert"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(o))
	}
}

// EntryPoint invokes the loaded binary's user entrypoint with the calldata
// length. The binary never receives the calldata directly; it asks for it
// through read_args like it did on chain.
type EntryPoint func(argsLen int) (Outcome, error)

// The interposition shim lives behind a foreign function boundary and
// cannot thread a context value through the loaded binary, so the reader
// serving it sits in a process-wide slot. One replay owns the process at a
// time. readers is a stack: index 0 is the root frame's reader, pushes and
// pops above it track nested calls.
var (
	activeMu sync.Mutex
	readers  []*trace.FrameReader
)

// SetActive installs the root reader for a replay. It fails if another
// replay is still active.
func SetActive(r *trace.FrameReader) error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(readers) != 0 {
		return fmt.Errorf("replay already active")
	}
	readers = []*trace.FrameReader{r}
	return nil
}

// ClearActive tears the slot down, whatever state the replay left it in.
func ClearActive() {
	activeMu.Lock()
	defer activeMu.Unlock()
	readers = nil
}

// Active returns the reader currently serving hostios, nil when no replay
// is active.
func Active() *trace.FrameReader {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(readers) == 0 {
		return nil
	}
	return readers[len(readers)-1]
}

// Next serves the interposition shim: it pops the next recorded hostio,
// which must carry the expected operation name.
func Next(expected string) (hostio.Hostio, error) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(readers) == 0 {
		return hostio.Hostio{}, fmt.Errorf("no active replay")
	}
	return readers[len(readers)-1].Next(expected)
}

// Descend starts serving a callee frame. The shim calls it after popping a
// call_contract whose callee executes locally, and Ascend when the call
// returns.
func Descend(frame *hostio.TraceFrame) error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(readers) == 0 {
		return fmt.Errorf("no active replay")
	}
	readers = append(readers, trace.NewFrameReader(frame))
	return nil
}

// Ascend resumes the parent frame's reader.
func Ascend() error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if len(readers) <= 1 {
		return fmt.Errorf("not inside a nested call")
	}
	top := readers[len(readers)-1]
	if left := top.Remaining(); left > 0 {
		log.Warn(log.ReplayModule, "leaving call frame with unconsumed hostios", "remaining", left)
	}
	readers = readers[:len(readers)-1]
	return nil
}

// Session replays one acquired trace against an entrypoint.
type Session struct {
	Trace *trace.Trace
	Entry EntryPoint
}

// Run installs the root reader, invokes the entrypoint with the calldata
// length, and reports the outcome. The outcome is checked against the
// recorded receipt so a run that silently flips success and revert still
// surfaces.
func (s *Session) Run() (Outcome, error) {
	reader := s.Trace.Reader()
	if err := SetActive(reader); err != nil {
		return 0, err
	}
	defer ClearActive()

	log.Info(log.ReplayModule, "replay starting",
		"tx", s.Trace.Hash.Hex(), "args_len", s.Trace.ArgsLen(), "root_steps", reader.Remaining())

	outcome, err := s.Entry(s.Trace.ArgsLen())
	if err != nil {
		return 0, fmt.Errorf("entrypoint: %w", err)
	}

	if left := reader.Remaining(); left > 0 {
		log.Warn(log.ReplayModule, "replay finished with unconsumed hostios", "remaining", left, "state", reader.State().String())
	}

	recordedSuccess := s.Trace.Receipt.Status == types.ReceiptStatusSuccessful
	switch {
	case outcome == OutcomeSuccess && recordedSuccess:
	case outcome == OutcomeRevert && !recordedSuccess:
	default:
		log.Warn(log.ReplayModule, "outcome differs from recorded receipt",
			"outcome", outcome.String(), "receipt_status", s.Trace.Receipt.Status)
	}

	log.Info(log.ReplayModule, "replay finished", "outcome", outcome.String())
	return outcome, nil
}

// Run is shorthand for a one-shot session.
func Run(tr *trace.Trace, entry EntryPoint) (Outcome, error) {
	s := &Session{Trace: tr, Entry: entry}
	return s.Run()
}
