// Package mock implements the Frontend Bridge contract over a scripted
// sequence of inputs, for deterministic conductor tests.
package mock

import (
	"context"
	"sync"

	"github.com/aravindhsampath/chitti/pkg/frontend"
	"github.com/aravindhsampath/chitti/pkg/wire"
)

// Bridge replays a fixed sequence of InputMessages and Authorizations,
// recording everything rendered so a test can assert against it.
type Bridge struct {
	mu sync.Mutex

	inputs []frontend.InputMessage
	inPos  int

	authorizations []frontend.Authorization
	authPos        int

	Deltas       []DeltaCall
	Finals       []FinalCall
	Errors       []ErrorCall
	AuthRequests []wire.FunctionCall
}

type DeltaCall struct {
	PartIndex int
	Text      string
}

type FinalCall struct {
	Text  string
	Usage wire.Usage
}

type ErrorCall struct {
	TaxonomyKind string
	UserMessage  string
}

// New builds a mock Bridge that yields inputs in order, then ErrClosed.
func New(inputs []frontend.InputMessage, authorizations []frontend.Authorization) *Bridge {
	return &Bridge{inputs: inputs, authorizations: authorizations}
}

func (b *Bridge) NextInput(ctx context.Context) (frontend.InputMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inPos >= len(b.inputs) {
		return frontend.InputMessage{}, frontend.ErrClosed
	}
	msg := b.inputs[b.inPos]
	b.inPos++
	return msg, nil
}

func (b *Bridge) RenderDelta(partIndex int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deltas = append(b.Deltas, DeltaCall{PartIndex: partIndex, Text: text})
}

func (b *Bridge) RenderFinal(text string, usage wire.Usage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Finals = append(b.Finals, FinalCall{Text: text, Usage: usage})
}

func (b *Bridge) RenderError(taxonomyKind, userMessage string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Errors = append(b.Errors, ErrorCall{TaxonomyKind: taxonomyKind, UserMessage: userMessage})
}

func (b *Bridge) Authorize(ctx context.Context, call wire.FunctionCall) (frontend.Authorization, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.AuthRequests = append(b.AuthRequests, call)
	if b.authPos >= len(b.authorizations) {
		return frontend.Deny, frontend.ErrClosed
	}
	verdict := b.authorizations[b.authPos]
	b.authPos++
	return verdict, nil
}
