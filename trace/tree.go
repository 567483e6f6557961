package trace

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/colorfulnotion/stylus-replay/hostio"
)

// Tree renders the frame tree for terminal inspection, one node per
// hostio, call frames as branches.
func Tree(frame *hostio.TraceFrame) string {
	tree := treeprint.New()
	tree.SetValue(frameLabel(frame))
	addFrame(tree, frame)
	return tree.String()
}

func frameLabel(frame *hostio.TraceFrame) string {
	if frame.Address == nil {
		return "frame (contract creation)"
	}
	return fmt.Sprintf("frame %s", frame.Address.Hex())
}

func addFrame(tree treeprint.Tree, frame *hostio.TraceFrame) {
	for _, h := range frame.Steps {
		if call, ok := h.Kind.(hostio.CallContract); ok {
			branch := tree.AddBranch(h.String())
			addFrame(branch, call.Frame)
			continue
		}
		tree.AddNode(h.String())
	}
}
