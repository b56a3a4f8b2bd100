// Package terminal implements the Frontend Bridge contract over stdin/stdout:
// line input, slash commands, and y/N authorization. The authorization
// answer is read as a whole line (up to Enter), not as a single keystroke.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aravindhsampath/chitti/pkg/frontend"
	"github.com/aravindhsampath/chitti/pkg/wire"
)

// Bridge is a line-oriented terminal implementation of frontend.Bridge.
type Bridge struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// New builds a terminal Bridge reading from in and writing to out.
func New(in io.Reader, out io.Writer, prompt string) *Bridge {
	if prompt == "" {
		prompt = "> "
	}
	return &Bridge{in: bufio.NewReader(in), out: out, prompt: prompt}
}

func (b *Bridge) NextInput(ctx context.Context) (frontend.InputMessage, error) {
	fmt.Fprint(b.out, b.prompt)

	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult, 1)
	go func() {
		line, err := b.in.ReadString('\n')
		lines <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return frontend.InputMessage{}, ctx.Err()
	case r := <-lines:
		if r.err != nil {
			if r.err == io.EOF {
				return frontend.InputMessage{}, frontend.ErrClosed
			}
			return frontend.InputMessage{}, r.err
		}
		return parseLine(strings.TrimRight(r.line, "\r\n")), nil
	}
}

func parseLine(line string) frontend.InputMessage {
	switch strings.TrimSpace(line) {
	case "/exit":
		return frontend.Quit()
	case "/clear":
		return frontend.Clear()
	case "/new":
		return frontend.New()
	}
	if strings.HasPrefix(line, "/steer ") {
		return frontend.Steer(strings.TrimPrefix(line, "/steer "))
	}
	return frontend.UserText(line)
}

func (b *Bridge) RenderDelta(partIndex int, text string) {
	fmt.Fprint(b.out, text)
}

func (b *Bridge) RenderFinal(text string, usage wire.Usage) {
	fmt.Fprintf(b.out, "\n[tokens: prompt=%d candidates=%d total=%d]\n", usage.Prompt, usage.Candidates, usage.Total)
}

func (b *Bridge) RenderError(taxonomyKind, userMessage string) {
	fmt.Fprintf(b.out, "\n[error: %s] %s\n", taxonomyKind, userMessage)
}

func (b *Bridge) Authorize(ctx context.Context, call wire.FunctionCall) (frontend.Authorization, error) {
	fmt.Fprintf(b.out, "\nallow tool call %q (%v)? [y/N] ", call.Name, call.Args)
	line, err := b.in.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return frontend.Deny, frontend.ErrClosed
		}
		return frontend.Deny, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return frontend.Allow, nil
	}
	return frontend.Deny, nil
}
