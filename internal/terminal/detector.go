// Package terminal decides whether console output goes to a person or to a
// machine, so that the console log format can follow.
package terminal

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars are set by common CI systems.
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"TRAVIS",                 // Travis CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILD_NUMBER",           // Jenkins/TeamCity/etc
	"GITLAB_CI",              // GitLab CI
	"BUILDKITE",              // Buildkite
	"DRONE",                  // Drone CI
	"TF_BUILD",               // Azure DevOps
}

// Options controls detection. The function fields default to the real
// environment and are replaced in tests.
type Options struct {
	ForceInteractive    bool // Force interactive mode regardless of environment
	ForceNonInteractive bool // Force non-interactive mode regardless of environment

	LookupEnv  func(key string) (string, bool)
	IsTerminal func(fd int) bool
}

// Detector reports whether a writer is an interactive console.
type Detector struct {
	opts Options
}

// NewDetector creates a Detector.
func NewDetector(opts Options) *Detector {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.IsTerminal == nil {
		opts.IsTerminal = term.IsTerminal
	}
	return &Detector{opts: opts}
}

// IsInteractive reports whether output written to w is read by a person.
// Force options win, then a CI environment means non-interactive, then w must
// be a terminal.
func (d *Detector) IsInteractive(w io.Writer) bool {
	if d.opts.ForceInteractive {
		return true
	}
	if d.opts.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal(w)
}

// IsTerminal reports whether w is a file descriptor attached to a terminal.
func (d *Detector) IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return d.opts.IsTerminal(int(f.Fd()))
}

// IsCIEnvironment reports whether a CI system is detected.
func (d *Detector) IsCIEnvironment() bool {
	for _, key := range ciEnvVars {
		value, ok := d.opts.LookupEnv(key)
		if !ok || value == "" {
			continue
		}
		// CI=false is an explicit opt-out.
		if key == "CI" {
			return isCITruthy(value)
		}
		return true
	}
	return false
}

func isCITruthy(value string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	return lower != "false" && lower != "0" && lower != "no"
}
