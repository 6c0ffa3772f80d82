package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoCommand = errors.New("no invoker command configured")

// Shell invokes device methods by running a command template through sh.
// The template may reference {{did}}, {{method}} and {{params}}; values are
// shell-quoted, and an empty params value is substituted as nothing.
type Shell struct {
	template string
}

// NewShell validates tmpl and returns an invoker for it.
func NewShell(tmpl string) (*Shell, error) {
	if strings.TrimSpace(tmpl) == "" {
		return nil, ErrNoCommand
	}

	names := ExtractPlaceholders(tmpl)
	required := map[string]bool{"did": false, "method": false}
	for _, n := range names {
		switch n {
		case "did", "method":
			required[n] = true
		case "params":
		default:
			return nil, fmt.Errorf("unknown placeholder {{%s}} in invoker command", n)
		}
	}
	for n, found := range required {
		if !found {
			return nil, fmt.Errorf("invoker command must reference {{%s}}", n)
		}
	}

	return &Shell{template: tmpl}, nil
}

// CommandLine renders the shell command for one call.
func (s *Shell) CommandLine(did, method, params string) string {
	values := map[string]string{
		"did":    Quote(did),
		"method": Quote(method),
		"params": "",
	}
	if params != "" {
		values["params"] = Quote(params)
	}
	return Substitute(s.template, values)
}

// Invoke runs the command and returns its stdout as a JSON payload. Output
// that is not valid JSON is returned as a JSON string. On failure the error
// carries stderr text when there is any.
func (s *Shell) Invoke(ctx context.Context, did, method, params string) (json.RawMessage, error) {
	output := make(chan OutputMsg)
	go Run(ctx, s.CommandLine(did, method, params), output)

	var stdout, stderr []string
	var runErr string
	for msg := range output {
		switch {
		case msg.Done:
			runErr = msg.ErrMsg
		case msg.IsErr:
			stderr = append(stderr, msg.Line)
		default:
			stdout = append(stdout, msg.Line)
		}
	}

	if runErr != "" {
		if text := strings.TrimSpace(strings.Join(stderr, "\n")); text != "" && ctx.Err() == nil {
			return nil, errors.New(text)
		}
		return nil, errors.New(runErr)
	}

	return Payload(strings.Join(stdout, "\n")), nil
}

// Payload converts raw command output into a JSON value.
func Payload(out string) json.RawMessage {
	out = strings.TrimSpace(out)
	if out == "" {
		return json.RawMessage("null")
	}
	if json.Valid([]byte(out)) {
		return json.RawMessage(out)
	}
	b, _ := json.Marshal(out)
	return b
}
