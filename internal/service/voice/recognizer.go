// Package voice turns speech into transcript events and replies into ordered
// audio playback.
package voice

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// ErrInputClosed is returned by a recognizer whose input is gone for good.
// The producer does not restart after it.
var ErrInputClosed = errors.New("recognizer input closed")

type Result struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Recognizer streams results into out until ctx is cancelled or recognition
// ends. It must not close out.
type Recognizer interface {
	Recognize(ctx context.Context, out chan<- Result) error
}

// LineRecognizer treats every non-blank line of r as a final result.
// One reader goroutine outlives individual Recognize calls so a paused
// producer does not lose buffered input.
type LineRecognizer struct {
	r     io.Reader
	once  sync.Once
	lines chan string
	err   error
}

func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r, lines: make(chan string)}
}

func (l *LineRecognizer) start() {
	go func() {
		defer close(l.lines)
		scanner := bufio.NewScanner(l.r)
		for scanner.Scan() {
			l.lines <- scanner.Text()
		}
		l.err = scanner.Err()
	}()
}

func (l *LineRecognizer) Recognize(ctx context.Context, out chan<- Result) error {
	l.once.Do(l.start)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-l.lines:
			if !ok {
				if l.err != nil {
					return fmt.Errorf("read input: %w", l.err)
				}
				return ErrInputClosed
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			select {
			case out <- Result{Text: line, Final: true}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// ExecRecognizer runs a speech-to-text command that prints one JSON result per
// line, e.g. {"text":"hello","final":false}.
type ExecRecognizer struct {
	cmd []string
}

func NewExecRecognizer(command string) (*ExecRecognizer, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	return &ExecRecognizer{cmd: args}, nil
}

func (e *ExecRecognizer) Recognize(ctx context.Context, out chan<- Result) error {
	cmdCtx, kill := context.WithCancel(ctx)
	defer kill()

	cmd := exec.CommandContext(cmdCtx, e.cmd[0], e.cmd[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}

	scanErr := scanResults(ctx, stdout, out)
	if scanErr != nil {
		// The command may still be writing to a pipe nobody reads.
		kill()
	}
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case scanErr != nil:
		return scanErr
	case waitErr != nil:
		return fmt.Errorf("recognizer exited: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func scanResults(ctx context.Context, r io.Reader, out chan<- Result) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res Result
		if err := json.Unmarshal(line, &res); err != nil {
			return fmt.Errorf("decode recognizer output: %w", err)
		}
		select {
		case out <- res:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
