package replay

import (
	"fmt"
	"sort"
	"sync"
)

// Launcher loads a compiled contract library and exposes its entrypoint.
// Loading happens behind a foreign function boundary (dlopen and friends),
// so launchers live outside this module and register themselves here,
// selected by name at the command line.
type Launcher interface {
	// Load opens the shared library at path and resolves its entrypoint.
	// The returned closer unloads the library.
	Load(path string) (entry EntryPoint, closer func() error, err error)
}

var (
	launchersMu sync.RWMutex
	launchers   = make(map[string]Launcher)
)

// RegisterLauncher makes a launcher selectable under the given name.
// It panics on a nil launcher or a duplicate name.
func RegisterLauncher(name string, l Launcher) {
	launchersMu.Lock()
	defer launchersMu.Unlock()
	if l == nil {
		panic("replay: RegisterLauncher called with nil launcher")
	}
	if _, dup := launchers[name]; dup {
		panic("replay: RegisterLauncher called twice for " + name)
	}
	launchers[name] = l
}

// NewLauncher returns the launcher registered under name.
func NewLauncher(name string) (Launcher, error) {
	launchersMu.RLock()
	defer launchersMu.RUnlock()
	l, ok := launchers[name]
	if !ok {
		available := launcherNamesLocked()
		if len(available) == 0 {
			return nil, fmt.Errorf("no launcher %q: none are linked into this build", name)
		}
		return nil, fmt.Errorf("no launcher %q: available launchers are %v", name, available)
	}
	return l, nil
}

// Launchers lists the registered launcher names, sorted.
func Launchers() []string {
	launchersMu.RLock()
	defer launchersMu.RUnlock()
	return launcherNamesLocked()
}

func launcherNamesLocked() []string {
	names := make([]string, 0, len(launchers))
	for name := range launchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
