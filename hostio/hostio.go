// Package hostio holds the decoded form of a Stylus transaction trace:
// the host operations a contract performed, frame by frame, in the exact
// order the tracer recorded them.
package hostio

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Operation names as emitted by the tracer.
const (
	ReadArgsName        = "read_args"
	WriteResultName     = "write_result"
	MsgValueName        = "msg_value"
	MemoryGrowName      = "memory_grow"
	ContractAddressName = "contract_address"
	CallContractName    = "call_contract"
	UserEntrypointName  = "user_entrypoint"
	UserReturnedName    = "user_returned"
)

// TraceFrame is the hostio sequence of a single contract frame. Nested
// calls own their callee frames through CallContract, so a transaction
// decodes to a strict tree with the outermost contract at the root.
type TraceFrame struct {
	Steps   []Hostio
	Address *common.Address // nil only for a contract-creation root
}

// Hostio is one recorded host operation. Ink counters are preserved from
// the trace but take no part in replay decisions.
type Hostio struct {
	Kind     Kind
	StartInk uint64
	EndInk   uint64
}

// Name returns the operation name of the underlying kind.
func (h Hostio) Name() string {
	return h.Kind.Name()
}

// Ink returns the ink consumed by the operation.
func (h Hostio) Ink() uint64 {
	if h.EndInk > h.StartInk {
		return 0
	}
	return h.StartInk - h.EndInk
}

func (h Hostio) String() string {
	return fmt.Sprintf("%s ink %d..%d", h.Kind.String(), h.StartInk, h.EndInk)
}

// Kind is the decoded payload of one host operation. Exactly one concrete
// type exists per operation name; the set is closed.
type Kind interface {
	Name() string
	String() string
	isKind()
}

// ReadArgs hands the calldata to the contract.
type ReadArgs struct {
	Args []byte
}

// WriteResult returns the contract's result data to the node.
type WriteResult struct {
	Result []byte
}

// MsgValue reports the callvalue as a 32-byte big-endian word.
type MsgValue struct {
	Value common.Hash
}

// MemoryGrow grows the program memory by a page count.
type MemoryGrow struct {
	Pages uint16
}

// ContractAddress reports the executing contract's own address.
type ContractAddress struct {
	Address common.Address
}

// CallContract calls another contract. The callee's own hostios hang off
// Frame; OutsLen and Status mirror what the tracer recorded for the call.
type CallContract struct {
	Address common.Address
	Gas     uint64
	Value   *uint256.Int
	Data    []byte
	OutsLen uint32
	Status  uint8
	Frame   *TraceFrame
}

// UserEntrypoint marks entry into the user program. Dropped at decode,
// tolerated by the reader if one surfaces anyway.
type UserEntrypoint struct{}

// UserReturned marks the user program returning control to the host.
// Dropped at decode.
type UserReturned struct{}

func (ReadArgs) Name() string        { return ReadArgsName }
func (WriteResult) Name() string     { return WriteResultName }
func (MsgValue) Name() string        { return MsgValueName }
func (MemoryGrow) Name() string      { return MemoryGrowName }
func (ContractAddress) Name() string { return ContractAddressName }
func (CallContract) Name() string    { return CallContractName }
func (UserEntrypoint) Name() string  { return UserEntrypointName }
func (UserReturned) Name() string    { return UserReturnedName }

func (k ReadArgs) String() string {
	return fmt.Sprintf("read_args(args=%s)", hexutil.Encode(k.Args))
}

func (k WriteResult) String() string {
	return fmt.Sprintf("write_result(result=%s)", hexutil.Encode(k.Result))
}

func (k MsgValue) String() string {
	return fmt.Sprintf("msg_value(value=%s)", k.Value.Hex())
}

func (k MemoryGrow) String() string {
	return fmt.Sprintf("memory_grow(pages=%d)", k.Pages)
}

func (k ContractAddress) String() string {
	return fmt.Sprintf("contract_address(address=%s)", k.Address.Hex())
}

func (k CallContract) String() string {
	return fmt.Sprintf("call_contract(address=%s, gas=%d, value=%s, data=%s, outs_len=%d, status=%d)",
		k.Address.Hex(), k.Gas, k.Value.Hex(), hexutil.Encode(k.Data), k.OutsLen, k.Status)
}

func (UserEntrypoint) String() string { return "user_entrypoint()" }
func (UserReturned) String() string   { return "user_returned()" }

func (ReadArgs) isKind()        {}
func (WriteResult) isKind()     {}
func (MsgValue) isKind()        {}
func (MemoryGrow) isKind()      {}
func (ContractAddress) isKind() {}
func (CallContract) isKind()    {}
func (UserEntrypoint) isKind()  {}
func (UserReturned) isKind()    {}
