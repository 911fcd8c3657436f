package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external extractor with the document on stdin and
// returns what it wrote to stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command, stdin io.Reader) ([]byte, error)
}

const (
	maxStdoutBytes = 4 << 20
	maxStderrBytes = 64 << 10
)

type ExecRunner struct {
	log *slog.Logger
}

func NewExecRunner(log *slog.Logger) *ExecRunner {
	if log == nil {
		log = slog.Default()
	}
	return &ExecRunner{log: log}
}

// Run kills the process when ctx ends. Stderr is logged, never returned.
func (r *ExecRunner) Run(ctx context.Context, cmd Command, stdin io.Reader) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = stdin
	c.WaitDelay = 2 * time.Second

	stdout := &limitedBuffer{max: maxStdoutBytes}
	stderr := &limitedBuffer{max: maxStderrBytes}
	c.Stdout = stdout
	c.Stderr = stderr

	start := time.Now()
	err := c.Run()

	if stderr.Len() > 0 {
		r.log.WarnContext(ctx, "extractor stderr",
			"command", cmd.Path,
			"stderr", stderr.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessFailure, ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: exit status %d", ErrProcessFailure, exitErr.ExitCode())
		}
		return nil, fmt.Errorf("%w: %v", ErrProcessFailure, err)
	}

	if stdout.truncated {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrParseFailure, maxStdoutBytes)
	}

	return stdout.Bytes(), nil
}

// limitedBuffer keeps the first max bytes and discards the rest so a noisy
// extractor cannot exhaust memory or block on a full pipe.
type limitedBuffer struct {
	bytes.Buffer
	max       int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.max - b.Buffer.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.Buffer.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.Buffer.Write(p)
}
