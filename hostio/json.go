package hostio

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MarshalJSON renders the frame with hex-encoded byte payloads. The form
// is stable, so traces can be written to disk and diffed across runs.
func (f *TraceFrame) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"steps": f.Steps,
	}
	if f.Address != nil {
		m["address"] = f.Address
	}
	return json.Marshal(m)
}

func (h Hostio) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"name":     h.Kind.Name(),
		"startInk": h.StartInk,
		"endInk":   h.EndInk,
	}
	switch k := h.Kind.(type) {
	case ReadArgs:
		m["args"] = hexutil.Bytes(k.Args)
	case WriteResult:
		m["result"] = hexutil.Bytes(k.Result)
	case MsgValue:
		m["value"] = k.Value
	case MemoryGrow:
		m["pages"] = k.Pages
	case ContractAddress:
		m["address"] = k.Address
	case CallContract:
		m["address"] = k.Address
		m["gas"] = k.Gas
		m["value"] = k.Value
		m["data"] = hexutil.Bytes(k.Data)
		m["outsLen"] = k.OutsLen
		m["status"] = k.Status
		m["frame"] = k.Frame
	}
	return json.Marshal(m)
}
