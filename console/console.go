// Package console is an interactive JavaScript environment over a decoded
// trace, for poking at hostio sequences when a replay diverges and the
// tree dump is not enough.
package console

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dop251/goja"

	"github.com/colorfulnotion/stylus-replay/log"
	"github.com/colorfulnotion/stylus-replay/trace"
)

// helpers are defined in the VM at startup. They operate on the root frame
// unless handed a nested one (calls(i).frame and so on).
const helpers = `
	function steps(frame) { return (frame || trace).steps; }
	function step(i, frame) { return steps(frame)[i]; }
	function names(frame) {
		return steps(frame).map(function(s) { return s.name; });
	}
	function calls(frame) {
		return steps(frame).filter(function(s) { return s.name == "call_contract"; });
	}
	function ink(frame) {
		return steps(frame).reduce(function(total, s) {
			return total + (s.startInk - s.endInk);
		}, 0);
	}
`

// Console evaluates JavaScript against one acquired trace.
type Console struct {
	vm *goja.Runtime
	tr *trace.Trace
}

func New(tr *trace.Trace) (*Console, error) {
	c := &Console{
		vm: goja.New(),
		tr: tr,
	}
	if err := c.bind(); err != nil {
		return nil, err
	}
	return c, nil
}

// bind exposes the decoded frame as plain JS values via its JSON form,
// plus the transaction hash and the helper functions.
func (c *Console) bind() error {
	raw, err := json.Marshal(c.tr.Frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	var frameObj interface{}
	if err := json.Unmarshal(raw, &frameObj); err != nil {
		return fmt.Errorf("unmarshal frame: %w", err)
	}
	c.vm.Set("trace", frameObj)
	c.vm.Set("tx", c.tr.Hash.Hex())

	c.vm.Set("print", func(args ...goja.Value) {
		for _, arg := range args {
			fmt.Println(arg.Export())
		}
	})

	if _, err := c.vm.RunString(helpers); err != nil {
		return fmt.Errorf("install helpers: %w", err)
	}
	return nil
}

// Eval runs one line of JavaScript.
func (c *Console) Eval(src string) (goja.Value, error) {
	return c.vm.RunString(src)
}

// Run enters the read-eval-print loop and returns when the user exits.
func (c *Console) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "stylus> ",
		HistoryFile: filepath.Join(os.TempDir(), "stylus_replay_console_history.txt"),
	})
	if err != nil {
		return fmt.Errorf("start readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("✅ Inspecting trace of %s (%d root steps)\n", c.tr.Hash.Hex(), len(c.tr.Frame.Steps))
	fmt.Println("'trace' holds the decoded frame. Helpers: steps(), names(), calls(), ink(), step(i).")
	fmt.Println("Type 'exit' to quit.")

	log.Debug(log.ConsoleModule, "console started", "tx", c.tr.Hash.Hex())

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			break
		}

		value, err := c.Eval(line)
		if err != nil {
			fmt.Println("❌ JavaScript Error:", err)
			continue
		}
		c.printValue(value)
	}
	return nil
}

func (c *Console) printValue(value goja.Value) {
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return
	}
	exported := value.Export()
	if out, err := json.MarshalIndent(exported, "", "  "); err == nil {
		fmt.Println(string(out))
		return
	}
	fmt.Println(value.String())
}
