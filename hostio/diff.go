package hostio

import (
	"encoding/json"
	"fmt"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// DiffJSON renders an ASCII diff between two JSON documents, expected on
// the left. The bool reports whether the documents differ at all.
func DiffJSON(expected, actual []byte) (string, bool, error) {
	differ := gojsondiff.New()
	d, err := differ.Compare(expected, actual)
	if err != nil {
		return "", false, fmt.Errorf("compare traces: %w", err)
	}
	if !d.Modified() {
		return "", false, nil
	}

	var left map[string]interface{}
	if err := json.Unmarshal(expected, &left); err != nil {
		return "", false, fmt.Errorf("unmarshal expected trace: %w", err)
	}
	config := formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       true,
	}
	out, err := formatter.NewAsciiFormatter(left, config).Format(d)
	if err != nil {
		return "", false, err
	}
	return out, true, nil
}

// DiffFrames diffs two decoded frames through their JSON forms.
func DiffFrames(expected, actual *TraceFrame) (string, bool, error) {
	left, err := json.Marshal(expected)
	if err != nil {
		return "", false, fmt.Errorf("marshal expected frame: %w", err)
	}
	right, err := json.Marshal(actual)
	if err != nil {
		return "", false, fmt.Errorf("marshal actual frame: %w", err)
	}
	return DiffJSON(left, right)
}
