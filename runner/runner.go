package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	maxLineSize = 1024 * 1024

	// waitDelay bounds how long Wait keeps the pipes open after cancellation.
	waitDelay = 500 * time.Millisecond
)

var placeholderRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractPlaceholders returns all {{name}} placeholders in a template, in order
// of first appearance.
func ExtractPlaceholders(tmpl string) []string {
	matches := placeholderRegex.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Substitute replaces {{name}} with the provided values. Unknown
// placeholders are left untouched.
func Substitute(tmpl string, values map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-2]
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
}

// Quote wraps s in single quotes for sh.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// OutputMsg is sent through the channel for each line of output
type OutputMsg struct {
	Line   string
	IsErr  bool
	Done   bool
	ErrMsg string
}

// Run executes a shell command and streams output through a channel.
// The channel is closed when the command has exited.
func Run(ctx context.Context, cmd string, output chan<- OutputMsg) {
	defer close(output)

	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	// Children of sh inherit the output pipes, so cancellation has to reach
	// the whole process group or the readers never see EOF.
	setProcessGroup(c)
	c.WaitDelay = waitDelay

	stdout, err := c.StdoutPipe()
	if err != nil {
		output <- OutputMsg{Done: true, ErrMsg: err.Error()}
		return
	}

	stderr, err := c.StderrPipe()
	if err != nil {
		output <- OutputMsg{Done: true, ErrMsg: err.Error()}
		return
	}

	if err := c.Start(); err != nil {
		output <- OutputMsg{Done: true, ErrMsg: err.Error()}
		return
	}

	// Stream stdout and stderr concurrently
	done := make(chan error, 2)

	streamReader := func(r io.Reader, isErr bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			output <- OutputMsg{Line: scanner.Text(), IsErr: isErr}
		}
		err := scanner.Err()
		if err != nil {
			// Keep draining so the command does not block on a full pipe.
			io.Copy(io.Discard, r)
		}
		done <- err
	}

	go streamReader(stdout, false)
	go streamReader(stderr, true)

	var scanErr error
	for range 2 {
		if err := <-done; err != nil && scanErr == nil {
			scanErr = err
		}
	}

	err = c.Wait()
	switch {
	case ctx.Err() != nil:
		output <- OutputMsg{Done: true, ErrMsg: ctx.Err().Error()}
	case errors.Is(scanErr, bufio.ErrTooLong):
		output <- OutputMsg{Done: true, ErrMsg: fmt.Sprintf("output line longer than %d bytes", maxLineSize)}
	case scanErr != nil:
		output <- OutputMsg{Done: true, ErrMsg: scanErr.Error()}
	case err != nil:
		output <- OutputMsg{Done: true, ErrMsg: err.Error()}
	default:
		output <- OutputMsg{Done: true}
	}
}
