package trace

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/colorfulnotion/stylus-replay/hostio"
)

func TestTree(t *testing.T) {
	callee := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	frame := mkFrame(
		mk(hostio.ReadArgs{Args: []byte{1}}, 100, 90),
		mk(hostio.CallContract{
			Address: callee,
			Gas:     1000,
			Value:   uint256.NewInt(0),
			Frame: &hostio.TraceFrame{
				Address: &callee,
				Steps:   []hostio.Hostio{mk(hostio.WriteResult{Result: []byte{7}}, 60, 55)},
			},
		}, 90, 50),
	)

	out := Tree(frame)
	assert.Contains(t, out, "frame "+testAddr.Hex())
	assert.Contains(t, out, "read_args")
	assert.Contains(t, out, "call_contract")
	assert.Contains(t, out, "write_result")
}

func TestTreeCreationRoot(t *testing.T) {
	frame := &hostio.TraceFrame{
		Steps: []hostio.Hostio{mk(hostio.ReadArgs{Args: nil}, 10, 9)},
	}
	out := Tree(frame)
	assert.Contains(t, out, "frame (contract creation)")
}
