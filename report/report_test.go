package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/stylus-replay/hostio"
)

func reportFrame() *hostio.TraceFrame {
	root := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	callee := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	return &hostio.TraceFrame{
		Address: &root,
		Steps: []hostio.Hostio{
			{Kind: hostio.ReadArgs{Args: []byte{1}}, StartInk: 100, EndInk: 90},
			{Kind: hostio.CallContract{
				Address: callee,
				Gas:     1000,
				Value:   uint256.NewInt(0),
				Frame: &hostio.TraceFrame{
					Address: &callee,
					Steps: []hostio.Hostio{
						{Kind: hostio.MsgValue{}, StartInk: 80, EndInk: 75},
					},
				},
			}, StartInk: 90, EndInk: 50},
		},
	}
}

func TestInkProfile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InkProfile(reportFrame(), "tx 0xbeef", &buf))

	html := buf.String()
	assert.Contains(t, html, "<html>")
	assert.Contains(t, html, "tx 0xbeef")
	assert.Contains(t, html, "3 hostios")
	assert.Contains(t, html, "0 read_args")
	assert.Contains(t, html, "1 call_contract")
	// Nested call steps are labeled under their parent's position.
	assert.Contains(t, html, "1.0 msg_value")
}

func TestWriteInkProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.html")
	require.NoError(t, WriteInkProfile(reportFrame(), "tx 0xcafe", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tx 0xcafe")
}
