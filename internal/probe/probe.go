package probe

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Capability is the advisory status of one optional external tool. A missing
// capability is reported to the user but never fails a run.
type Capability struct {
	Name   string
	Found  bool
	Detail string
}

// Overridable for tests.
var (
	lookPath    = exec.LookPath
	userHomeDir = os.UserHomeDir
	globFn      = filepath.Glob
)

// ideExtensionGlobs are the known install locations of the editor lint
// plugin, relative to the user home directory. The same layout is used on
// linux, darwin and windows.
var ideExtensionGlobs = []string{
	filepath.Join(".vscode", "extensions", "golang.go-*"),
	filepath.Join(".vscode-server", "extensions", "golang.go-*"),
}

// Check probes the fixed capability set: a scripting interpreter, the review
// CLI, and the editor lint plugin. Every check is advisory.
func Check() []Capability {
	return []Capability{
		checkInterpreter(),
		checkReviewCLI(),
		checkIDEPlugin(),
	}
}

func checkInterpreter() Capability {
	c := Capability{Name: "scripting interpreter"}
	for _, candidate := range []string{"python3", "python"} {
		if path, err := lookPath(candidate); err == nil {
			c.Found = true
			c.Detail = path
			return c
		}
	}
	c.Detail = "python3 not found on PATH; hook scripts that need it will be skipped"
	return c
}

func checkReviewCLI() Capability {
	c := Capability{Name: "review CLI"}
	if path, err := lookPath("claude"); err == nil {
		c.Found = true
		c.Detail = path
		return c
	}
	c.Detail = "claude not found on PATH; the advisory review step will be skipped"
	return c
}

func checkIDEPlugin() Capability {
	c := Capability{Name: "IDE lint plugin"}

	home, err := userHomeDir()
	if err != nil {
		c.Detail = "cannot determine home directory"
		return c
	}

	for _, pattern := range ideExtensionGlobs {
		matches, err := globFn(filepath.Join(home, pattern))
		if err == nil && len(matches) > 0 {
			c.Found = true
			c.Detail = matches[0]
			return c
		}
	}

	c.Detail = "editor lint plugin not installed"
	return c
}
