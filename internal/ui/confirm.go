package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConfirmFunc adapts a function to posts.Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Always answers every prompt with answer.
func Always(answer bool) ConfirmFunc {
	return func(context.Context, string) (bool, error) { return answer, nil }
}

// PromptConfirmer asks on out and reads a y/n answer from in.
type PromptConfirmer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	return &PromptConfirmer{in: br, out: out}
}

// Confirm blocks until a line is read. Anything but y/yes declines; EOF declines.
func (p *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.out, "%s [y/N] ", prompt); err != nil {
		return false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
