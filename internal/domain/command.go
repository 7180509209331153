package domain

// ExecCommand represents an external command to be executed.
// This type is used to pass command information between layers
// without exposing implementation details.
type ExecCommand struct {
	Program string
	Dir     string
	Args    []string
	Env     []string // Appended to the current process environment
}

// NewShellCommand creates a command that runs script through sh -c.
func NewShellCommand(script, dir string) *ExecCommand {
	return &ExecCommand{
		Program: "sh",
		Args:    []string{"-c", script},
		Dir:     dir,
	}
}

// NewGitCommand creates a git command running in dir.
func NewGitCommand(dir string, args ...string) *ExecCommand {
	return &ExecCommand{
		Program: "git",
		Args:    args,
		Dir:     dir,
	}
}

// ExecResult holds the captured output of a finished command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout followed by stderr.
func (r *ExecResult) Combined() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}
