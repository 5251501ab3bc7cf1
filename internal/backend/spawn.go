package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

// SpawnResult is what came back from one subprocess run.
type SpawnResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Spawner runs an executable with a prompt on stdin. Swappable in tests.
type Spawner interface {
	Spawn(ctx context.Context, path string, args []string, stdin string, extraEnv []string, timeout time.Duration) (SpawnResult, error)
}

// execSpawner spawns real subprocesses. The prompt travels over stdin,
// never as an argument, and no shell is ever involved.
type execSpawner struct{}

func (execSpawner) Spawn(ctx context.Context, path string, args []string, stdin string, extraEnv []string, timeout time.Duration) (SpawnResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Kill the whole process, not just wait for pipes, once the deadline hits.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()
	res := SpawnResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
