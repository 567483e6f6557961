package replay

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/trace"
)

func mk(kind hostio.Kind, startInk, endInk uint64) hostio.Hostio {
	return hostio.Hostio{Kind: kind, StartInk: startInk, EndInk: endInk}
}

func testTrace(status uint64, steps ...hostio.Hostio) *trace.Trace {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := types.NewTx(&types.LegacyTx{Data: []byte{1, 2, 3, 4}})
	return &trace.Trace{
		Frame:   &hostio.TraceFrame{Address: &addr, Steps: steps},
		Tx:      tx,
		Receipt: &types.Receipt{Status: status},
		Hash:    common.HexToHash("0xbeef"),
	}
}

func TestSlotLifecycle(t *testing.T) {
	t.Cleanup(ClearActive)

	assert.Nil(t, Active())

	r := trace.NewFrameReader(&hostio.TraceFrame{})
	require.NoError(t, SetActive(r))
	assert.Equal(t, r, Active())

	err := SetActive(trace.NewFrameReader(&hostio.TraceFrame{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay already active")

	ClearActive()
	assert.Nil(t, Active())
	require.NoError(t, SetActive(r))
}

func TestNextWithoutActiveReplay(t *testing.T) {
	t.Cleanup(ClearActive)

	_, err := Next(hostio.ReadArgsName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active replay")

	err = Descend(&hostio.TraceFrame{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active replay")
}

func TestDescendAscend(t *testing.T) {
	t.Cleanup(ClearActive)

	callee := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	child := &hostio.TraceFrame{
		Address: &callee,
		Steps: []hostio.Hostio{
			mk(hostio.ReadArgs{Args: []byte{9}}, 50, 45),
		},
	}
	root := &hostio.TraceFrame{
		Steps: []hostio.Hostio{
			mk(hostio.CallContract{Address: callee, Value: uint256.NewInt(0), Frame: child}, 100, 20),
			mk(hostio.WriteResult{Result: []byte{1}}, 15, 10),
		},
	}
	require.NoError(t, SetActive(trace.NewFrameReader(root)))

	err := Ascend()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not inside a nested call")

	h, err := Next(hostio.CallContractName)
	require.NoError(t, err)
	call := h.Kind.(hostio.CallContract)

	require.NoError(t, Descend(call.Frame))
	assert.Equal(t, &callee, Active().Address())

	h, err = Next(hostio.ReadArgsName)
	require.NoError(t, err)
	assert.Equal(t, hostio.ReadArgs{Args: []byte{9}}, h.Kind)

	require.NoError(t, Ascend())

	// Back on the root frame's reader.
	h, err = Next(hostio.WriteResultName)
	require.NoError(t, err)
	assert.Equal(t, hostio.WriteResult{Result: []byte{1}}, h.Kind)
}

func TestSessionRun(t *testing.T) {
	t.Cleanup(ClearActive)

	tr := testTrace(types.ReceiptStatusSuccessful,
		mk(hostio.ReadArgs{Args: []byte{1, 2, 3, 4}}, 100, 90),
		mk(hostio.WriteResult{Result: []byte{0}}, 80, 70),
	)

	var gotArgsLen int
	entry := func(argsLen int) (Outcome, error) {
		gotArgsLen = argsLen
		if _, err := Next(hostio.ReadArgsName); err != nil {
			return 0, err
		}
		if _, err := Next(hostio.WriteResultName); err != nil {
			return 0, err
		}
		return OutcomeSuccess, nil
	}

	outcome, err := Run(tr, entry)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 4, gotArgsLen)
	assert.Nil(t, Active(), "slot must be released after the run")
}

func TestSessionRunEntrypointError(t *testing.T) {
	t.Cleanup(ClearActive)

	tr := testTrace(types.ReceiptStatusSuccessful)
	boom := errors.New("segfault in contract")
	_, err := Run(tr, func(int) (Outcome, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "entrypoint:")
	assert.Nil(t, Active())
}

func TestSessionRunDivergence(t *testing.T) {
	t.Cleanup(ClearActive)

	tr := testTrace(types.ReceiptStatusSuccessful,
		mk(hostio.MsgValue{Value: common.HexToHash("0x05")}, 100, 90),
	)
	entry := func(int) (Outcome, error) {
		_, err := Next(hostio.WriteResultName)
		return 0, err
	}

	_, err := Run(tr, entry)
	require.ErrorIs(t, err, trace.ErrHostioMismatch)
	assert.Nil(t, Active())
}

func TestSessionRunRevert(t *testing.T) {
	t.Cleanup(ClearActive)

	tr := testTrace(types.ReceiptStatusFailed)
	outcome, err := Run(tr, func(int) (Outcome, error) { return OutcomeRevert, nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevert, outcome)
}

// An outcome disagreeing with the receipt is reported, not failed: the
// point of a replay is inspecting exactly this kind of divergence.
func TestSessionRunOutcomeMismatch(t *testing.T) {
	t.Cleanup(ClearActive)

	tr := testTrace(types.ReceiptStatusFailed)
	outcome, err := Run(tr, func(int) (Outcome, error) { return OutcomeSuccess, nil })
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestSessionRunBusySlot(t *testing.T) {
	t.Cleanup(ClearActive)

	require.NoError(t, SetActive(trace.NewFrameReader(&hostio.TraceFrame{})))

	tr := testTrace(types.ReceiptStatusSuccessful)
	_, err := Run(tr, func(int) (Outcome, error) { return OutcomeSuccess, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replay already active")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "revert", OutcomeRevert.String())
	assert.Equal(t, "unknown(7)", Outcome(7).String())
}
