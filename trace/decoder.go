package trace

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/colorfulnotion/stylus-replay/hostio"
)

// rawStep is one tracer step with its required fields extracted and
// type-checked. Payload arrays stay untyped until an operation's decoder
// claims them, matching how loosely the tracer types its output.
type rawStep struct {
	name     string
	args     []interface{}
	outs     []interface{}
	startInk uint64
	endInk   uint64
	info     map[string]interface{}
}

// stepDecoder turns one operation's raw payload into its kind.
type stepDecoder func(step *rawStep) (hostio.Kind, error)

// stepDecoders dispatches on the operation name. The entry owns its
// operation's fixed byte layout. user_entrypoint and user_returned never
// reach the table; ParseFrame drops them after field validation. Any name
// missing here fails the decode. Filled in init because decodeCallContract
// recurses through ParseFrame back into the table.
var stepDecoders map[string]stepDecoder

func init() {
	stepDecoders = map[string]stepDecoder{
		hostio.ReadArgsName:        decodeReadArgs,
		hostio.WriteResultName:     decodeWriteResult,
		hostio.MsgValueName:        decodeMsgValue,
		hostio.MemoryGrowName:      decodeMemoryGrow,
		hostio.ContractAddressName: decodeContractAddress,
		hostio.CallContractName:    decodeCallContract,
	}
}

// ParseFrame decodes one frame of tracer output into its hostio sequence,
// recursing into nested call frames. address is the contract the frame ran
// under, nil for a contract-creation root. Step order is preserved exactly;
// it is the replay order.
func ParseFrame(address *common.Address, raw interface{}) (*hostio.TraceFrame, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: frame is not an array", ErrMalformedTrace)
	}
	frame := &hostio.TraceFrame{
		Address: address,
		Steps:   make([]hostio.Hostio, 0, len(list)),
	}
	for i, v := range list {
		step, err := parseStep(i, v)
		if err != nil {
			return nil, err
		}
		switch step.name {
		case hostio.UserEntrypointName, hostio.UserReturnedName:
			// Program entry and exit markers carry nothing replayable.
			continue
		}
		decode, ok := stepDecoders[step.name]
		if !ok {
			return nil, fmt.Errorf("%w: %q at step %d", ErrUnsupportedHostio, step.name, i)
		}
		kind, err := decode(step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.name, err)
		}
		frame.Steps = append(frame.Steps, hostio.Hostio{
			Kind:     kind,
			StartInk: step.startInk,
			EndInk:   step.endInk,
		})
	}
	return frame, nil
}

func parseStep(index int, v interface{}) (*rawStep, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: step %d is not an object", ErrBadStep, index)
	}
	name, ok := obj["name"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: step %d has no name", ErrBadStep, index)
	}
	args, ok := obj["args"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: step %d (%s) has no args array", ErrBadStep, index, name)
	}
	outs, ok := obj["outs"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: step %d (%s) has no outs array", ErrBadStep, index, name)
	}
	startInk, ok := asUint64(obj["startInk"])
	if !ok {
		return nil, fmt.Errorf("%w: step %d (%s) has no startInk", ErrBadStep, index, name)
	}
	endInk, ok := asUint64(obj["endInk"])
	if !ok {
		return nil, fmt.Errorf("%w: step %d (%s) has no endInk", ErrBadStep, index, name)
	}
	info, _ := obj["info"].(map[string]interface{})
	return &rawStep{
		name:     name,
		args:     args,
		outs:     outs,
		startInk: startInk,
		endInk:   endInk,
		info:     info,
	}, nil
}

func decodeReadArgs(step *rawStep) (hostio.Kind, error) {
	args, err := decodeBytes("outs", step.outs)
	if err != nil {
		return nil, err
	}
	return hostio.ReadArgs{Args: args}, nil
}

func decodeWriteResult(step *rawStep) (hostio.Kind, error) {
	result, err := decodeBytes("args", step.args)
	if err != nil {
		return nil, err
	}
	return hostio.WriteResult{Result: result}, nil
}

func decodeMsgValue(step *rawStep) (hostio.Kind, error) {
	outs, err := decodeBytes("outs", step.outs)
	if err != nil {
		return nil, err
	}
	value, err := toWord("outs", outs)
	if err != nil {
		return nil, err
	}
	return hostio.MsgValue{Value: value}, nil
}

func decodeMemoryGrow(step *rawStep) (hostio.Kind, error) {
	args, err := decodeBytes("args", step.args)
	if err != nil {
		return nil, err
	}
	pages, err := toU16("args", args)
	if err != nil {
		return nil, err
	}
	return hostio.MemoryGrow{Pages: pages}, nil
}

func decodeContractAddress(step *rawStep) (hostio.Kind, error) {
	outs, err := decodeBytes("outs", step.outs)
	if err != nil {
		return nil, err
	}
	address, err := toAddress("outs", outs)
	if err != nil {
		return nil, err
	}
	return hostio.ContractAddress{Address: address}, nil
}

// call_contract args: 20-byte callee address, 8-byte gas, 32-byte value,
// then the calldata. outs: 4-byte outs length, 1-byte status. The callee's
// own hostios arrive through info.
func decodeCallContract(step *rawStep) (hostio.Kind, error) {
	args, err := decodeBytes("args", step.args)
	if err != nil {
		return nil, err
	}
	if len(args) < 60 {
		return nil, fmt.Errorf("%w: args has %d bytes, want at least 60", ErrBadStep, len(args))
	}
	outs, err := decodeBytes("outs", step.outs)
	if err != nil {
		return nil, err
	}
	if len(outs) < 5 {
		return nil, fmt.Errorf("%w: outs has %d bytes, want 5", ErrBadStep, len(outs))
	}

	address, err := toAddress("address", args[:20])
	if err != nil {
		return nil, err
	}
	gas, err := toU64("gas", args[20:28])
	if err != nil {
		return nil, err
	}
	outsLen, err := toU32("outs_len", outs[:4])
	if err != nil {
		return nil, err
	}
	status, err := toU8("status", outs[4:])
	if err != nil {
		return nil, err
	}

	if step.info == nil {
		return nil, fmt.Errorf("%w: missing info", ErrBadStep)
	}
	frame, err := decodeNestedFrame(step.info)
	if err != nil {
		return nil, err
	}

	return hostio.CallContract{
		Address: address,
		Gas:     gas,
		Value:   new(uint256.Int).SetBytes(args[28:60]),
		Data:    args[60:],
		OutsLen: outsLen,
		Status:  status,
		Frame:   frame,
	}, nil
}

func decodeNestedFrame(info map[string]interface{}) (*hostio.TraceFrame, error) {
	addrObj, ok := info["address"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: info.address is not an object", ErrBadStep)
	}
	address, err := decodeInfoAddress(addrObj)
	if err != nil {
		return nil, err
	}
	steps, ok := info["steps"]
	if !ok {
		return nil, fmt.Errorf("%w: info has no steps", ErrBadStep)
	}
	return ParseFrame(&address, steps)
}

// decodeInfoAddress reads the tracer's form for a callee address: an object
// keyed by byte position ("0" through "19"), ordered numerically. Two keys
// naming the same position ("0" and "00") are a malformed payload.
func decodeInfoAddress(obj map[string]interface{}) (common.Address, error) {
	byPos := make(map[int]byte, len(obj))
	keys := make([]int, 0, len(obj))
	for k, v := range obj {
		i, err := strconv.Atoi(k)
		if err != nil {
			return common.Address{}, fmt.Errorf("%w: info.address key %q is not numeric", ErrBadStep, k)
		}
		if _, seen := byPos[i]; seen {
			return common.Address{}, fmt.Errorf("%w: info.address has duplicate key %d", ErrBadStep, i)
		}
		n, ok := asUint64(v)
		if !ok || n > 255 {
			return common.Address{}, fmt.Errorf("%w: info.address[%d] is not a byte: %v", ErrBadStep, i, v)
		}
		byPos[i] = byte(n)
		keys = append(keys, i)
	}
	sort.Ints(keys)

	data := make([]byte, 0, len(keys))
	for _, k := range keys {
		data = append(data, byPos[k])
	}
	return toAddress("info.address", data)
}
