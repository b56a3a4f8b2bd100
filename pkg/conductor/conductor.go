package conductor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/aravindhsampath/chitti/pkg/brainclient"
	"github.com/aravindhsampath/chitti/pkg/frontend"
	"github.com/aravindhsampath/chitti/pkg/toolsystem"
	"github.com/aravindhsampath/chitti/pkg/wire"
)

const defaultMaxTurnRoundtrips = 12

// Logger is the minimal surface the Conductor needs; *zap.SugaredLogger
// (via internal/logging.Logger) satisfies it structurally.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
func (noopLogger) Debugf(string, ...any) {}

// Metrics is the minimal observation surface the Conductor reports
// through; internal/metrics.Metrics satisfies it via small adapter
// methods, so this package never imports Prometheus directly.
type Metrics interface {
	RecordTurn(outcome string)
	RecordRoundtrips(n int)
	RecordBrainRequest(outcome string, seconds float64)
	RecordToolDispatch(toolName, outcome string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordTurn(string)                      {}
func (noopMetrics) RecordRoundtrips(int)                   {}
func (noopMetrics) RecordBrainRequest(string, float64)     {}
func (noopMetrics) RecordToolDispatch(string, string, float64) {}

// Config tunes one Conductor instance (spec.md §6's conductor.* options).
type Config struct {
	Model              string
	SystemInstruction  *wire.Content
	MaxTurnRoundtrips  int
	AuthorizeByDefault bool
}

// brainSender is the slice of *brainclient.Client the Conductor actually
// calls. It exists so tests can substitute a fake brain without the
// Conductor depending on brainclient's concrete transport.
type brainSender interface {
	Send(ctx context.Context, req wire.InteractionRequest) (brainclient.InteractionStream, error)
}

// Conductor is the turn state machine: it owns the conversation cursor,
// drives the Brain Client, dispatches tool calls through the Registry
// with authorization, and talks to the operator only via the Frontend
// Bridge contract.
type Conductor struct {
	brain    brainSender
	registry toolsystem.Registry
	bridge   frontend.Bridge
	cfg      Config
	log      Logger

	cur      cursor
	steering *steeringQueue
	machine  *fsm.FSM
	retry    retryPolicy
	metrics  Metrics
}

// Option configures a Conductor at construction time.
type Option func(*Conductor)

func WithLogger(l Logger) Option {
	return func(c *Conductor) { c.log = l }
}

func WithMetrics(m Metrics) Option {
	return func(c *Conductor) { c.metrics = m }
}

// New builds a Conductor. Tool declarations come from registry at
// request-build time, so registering tools after construction is safe.
func New(brain brainSender, registry toolsystem.Registry, bridge frontend.Bridge, cfg Config, opts ...Option) *Conductor {
	if cfg.MaxTurnRoundtrips <= 0 {
		cfg.MaxTurnRoundtrips = defaultMaxTurnRoundtrips
	}
	c := &Conductor{
		brain:    brain,
		registry: registry,
		bridge:   bridge,
		cfg:      cfg,
		log:      noopLogger{},
		metrics:  noopMetrics{},
		steering: newSteeringQueue(),
		machine:  newMachine(),
		retry:    defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrQuit is returned by Run when the operator issued /exit.
var ErrQuit = errors.New("conductor: quit requested")

// Run is the outer AwaitingUser loop. A separate frontend-reader goroutine
// keeps pulling from the Frontend Bridge for the whole session so that
// Cancel and Steer signals reach an in-flight turn instead of queuing
// behind it (spec.md §5's "three logically concurrent tasks").
func (c *Conductor) Run(ctx context.Context) error {
	readerCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()

	mainInputCh := make(chan frontend.InputMessage)
	cancelCh := make(chan struct{}, 1)
	readerErrCh := make(chan error, 1)

	go c.frontendReader(readerCtx, mainInputCh, cancelCh, readerErrCh)

	for {
		if err := fire(ctx, c.machine, eventReset); err != nil {
			// Reset is valid from every state; an error here means the
			// machine itself is broken, not a turn-level failure.
			return fmt.Errorf("conductor: fsm reset failed: %w", err)
		}

		var msg frontend.InputMessage
		select {
		case <-ctx.Done():
			return nil
		case err := <-readerErrCh:
			if errors.Is(err, frontend.ErrClosed) {
				return nil
			}
			return err
		case msg = <-mainInputCh:
		}

		switch msg.Kind {
		case frontend.InputQuit:
			return ErrQuit
		case frontend.InputClear:
			c.cur.Clear()
			continue
		case frontend.InputNew:
			// /new starts a fresh interaction_id chain with the brain
			// without exiting the process or touching anything the
			// Frontend Bridge itself is rendering (spec.md §6: "new
			// conversation, keep session"). At the Conductor layer the
			// conversation cursor is the only state a fresh thread must
			// drop, so this has the same effect as InputClear today; it
			// is kept as its own case because a richer Bridge is free to
			// treat the two differently (e.g. clearing on-screen
			// scrollback for /clear but not for /new).
			c.cur.Clear()
			continue
		case frontend.InputUserText:
			if err := c.runTurnCancellable(ctx, cancelCh, msg.Text); err != nil {
				var ce *Error
				if errors.As(err, &ce) {
					if ce.Kind != ErrCancelled {
						c.bridge.RenderError(string(ce.Kind), ce.Message)
					}
					if !ce.PreserveCursor {
						c.cur.Clear()
					}
					continue
				}
				return err
			}
		}
	}
}

// frontendReader is the session-lifetime "frontend reader" task: it owns
// the only call site of bridge.NextInput so Cancel/Steer signals reach
// the conductor while a turn is in flight, instead of queuing behind it.
func (c *Conductor) frontendReader(ctx context.Context, mainInputCh chan<- frontend.InputMessage, cancelCh chan<- struct{}, errCh chan<- error) {
	for {
		msg, err := c.bridge.NextInput(ctx)
		if err != nil {
			errCh <- err
			return
		}
		switch msg.Kind {
		case frontend.InputCancel:
			select {
			case cancelCh <- struct{}{}:
			default:
			}
		case frontend.InputSteer:
			if msg.Text != "" {
				c.steering.Push(msg.Text)
			}
		default:
			select {
			case mainInputCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

// runTurnCancellable wires cancelCh to a per-turn context so a Cancel
// signal observed mid-stream aborts exactly this turn's Brain Client
// call, per spec.md §5's cooperative-cancellation rule.
func (c *Conductor) runTurnCancellable(ctx context.Context, cancelCh <-chan struct{}, userText string) error {
	turnCtx, cancelTurn := context.WithCancel(ctx)
	defer cancelTurn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-cancelCh:
			cancelTurn()
		case <-done:
		}
	}()

	err := c.runTurn(turnCtx, userText)
	c.metrics.RecordTurn(turnOutcome(err))
	return err
}

// turnOutcome maps a runTurn result onto metrics.TurnsTotal's outcome label.
func turnOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ce *Error
	if errors.As(err, &ce) {
		return string(ce.Kind)
	}
	return "error"
}

// runTurn drives the bounded round-trip loop for one user input.
func (c *Conductor) runTurn(ctx context.Context, userText string) error {
	input := wire.NewContentInput(c.withSteering([]wire.Content{
		{Role: wire.RoleUser, Parts: []wire.ContentPart{wire.Text{Value: userText}}},
	}))

	roundtrips := 0

	for {
		roundtrips++
		if roundtrips > c.cfg.MaxTurnRoundtrips {
			return &Error{Kind: ErrLoopLimit, Message: "too many tool round-trips for one input; try rephrasing", PreserveCursor: true}
		}

		if roundtrips == 1 {
			if err := fire(ctx, c.machine, eventUserInput); err != nil {
				return fmt.Errorf("conductor: fsm transition failed: %w", err)
			}
		}

		req := wire.NewRequest(c.cfg.Model, input)
		if prev, ok := c.cur.Get(); ok {
			req.PreviousInteractionID = prev
		}
		req.SystemInstruction = c.cfg.SystemInstruction
		req.Tools = c.registry.Declarations()

		_ = fire(ctx, c.machine, eventRequestSent)

		c.log.Debugf("conductor: round-trip %d/%d, previous_interaction_id=%q", roundtrips, c.cfg.MaxTurnRoundtrips, req.PreviousInteractionID)

		start := time.Now()
		stream, sendErr := c.sendWithRetry(ctx, req)
		if sendErr != nil {
			c.log.Warnf("conductor: send failed: %v", sendErr)
			ce := classifyBrainError(sendErr)
			c.metrics.RecordBrainRequest(string(ce.Kind), time.Since(start).Seconds())
			return ce
		}

		result, foldErr := c.streamTurn(stream)
		stream.Close()
		if foldErr != nil {
			ce := classifyBrainError(foldErr)
			c.metrics.RecordBrainRequest(string(ce.Kind), time.Since(start).Seconds())
			return ce
		}
		c.metrics.RecordBrainRequest("ok", time.Since(start).Seconds())

		_ = fire(ctx, c.machine, eventStreamDone)

		hasText := false
		for _, p := range result.OutputParts {
			if t, ok := p.(wire.Text); ok && t.Value != "" {
				hasText = true
			}
		}

		if len(result.ToolCalls) == 0 {
			if !hasText && result.FinishReason != wire.FinishStop {
				return classifyFinishReason(result.FinishReason)
			}
			_ = fire(ctx, c.machine, eventNoToolCalls)
			c.cur.Commit(result.InteractionID)
			finalText := concatenateText(result.OutputParts)
			c.bridge.RenderFinal(finalText, result.Usage)
			_ = fire(ctx, c.machine, eventEmitted)
			c.metrics.RecordRoundtrips(roundtrips)
			return nil
		}

		// Text and tool calls both present: surface text first, per
		// spec.md's tie-break rule, before the authorization prompt.
		if hasText {
			c.bridge.RenderFinal(concatenateText(result.OutputParts), result.Usage)
		}
		c.cur.Commit(result.InteractionID)

		_ = fire(ctx, c.machine, eventHasToolCalls)
		var authz toolsystem.Authorizer = frontend.Authorizer{Bridge: c.bridge}
		if c.cfg.AuthorizeByDefault {
			authz = alwaysAllow{}
		}
		calls := make([]wire.FunctionCall, len(result.ToolCalls))
		for i, tc := range result.ToolCalls {
			calls[i] = wire.FunctionCall{CallID: tc.CallID, Name: tc.Name, Args: tc.Args}
		}
		_ = fire(ctx, c.machine, eventAuthorized)

		c.log.Infof("conductor: dispatching %d tool call(s)", len(calls))
		dispatchStart := time.Now()
		results := toolsystem.DispatchParallel(ctx, c.registry, authz, calls)
		dispatchSeconds := time.Since(dispatchStart).Seconds()
		_ = fire(ctx, c.machine, eventToolsDone)

		pendingToolResults := make([]wire.ContentPart, len(results))
		for i, r := range results {
			pendingToolResults[i] = r
			c.metrics.RecordToolDispatch(r.Name, toolDispatchOutcome(r), dispatchSeconds)
		}

		turnInput := []wire.Content{
			{Role: wire.RoleTool, Parts: pendingToolResults},
		}
		input = wire.NewContentInput(c.withSteering(turnInput))
	}
}

// withSteering drains every operator steering message queued since the
// last sub-turn boundary and prepends it, in submission order, ahead of
// content. Called at every point runTurn builds the next request's input
// (the initial user message and every post-tool-dispatch follow-up) so a
// /steer is never attached to some later, unrelated turn (spec.md §5's
// "never reordered with user inputs" rule).
func (c *Conductor) withSteering(content []wire.Content) []wire.Content {
	texts := c.steering.DrainAll()
	if len(texts) == 0 {
		return content
	}
	parts := make([]wire.ContentPart, len(texts))
	for i, s := range texts {
		parts[i] = wire.Text{Value: s}
	}
	return append([]wire.Content{{Role: wire.RoleUser, Parts: parts}}, content...)
}

// sendWithRetry sends req, retrying transport/5xx/rate-limit failures per
// spec.md §7; the Brain Client itself never retries.
func (c *Conductor) sendWithRetry(ctx context.Context, req wire.InteractionRequest) (brainclient.InteractionStream, error) {
	var stream brainclient.InteractionStream
	err := c.retry.withRetry(ctx, func(attempt int) error {
		s, err := c.brain.Send(ctx, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	return stream, err
}

// streamTurn drains one interaction stream, forwarding ContentDelta to
// the bridge and folding toward the terminal InteractionResult.
func (c *Conductor) streamTurn(stream brainclient.InteractionStream) (*wire.InteractionResult, error) {
	result, err := brainclient.FoldStream(deltaForwardingStream{inner: stream, bridge: c.bridge})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// alwaysAllow implements toolsystem.Authorizer for
// conductor.authorize_by_default=true, skipping the operator prompt.
type alwaysAllow struct{}

func (alwaysAllow) Authorize(ctx context.Context, call wire.FunctionCall) (bool, error) {
	return true, nil
}

// toolDispatchOutcome reports "ok" unless the FunctionResult folds a
// ToolError in (see toolsystem.ToolError.AsFunctionResultValue).
func toolDispatchOutcome(r wire.FunctionResult) string {
	if errInfo, ok := r.Value["error"].(map[string]any); ok {
		if kind, ok := errInfo["kind"].(string); ok {
			return kind
		}
		return "failed"
	}
	return "ok"
}

func concatenateText(parts []wire.ContentPart) string {
	out := ""
	for _, p := range parts {
		if t, ok := p.(wire.Text); ok {
			out += t.Value
		}
	}
	return out
}

// deltaForwardingStream wraps an InteractionStream, forwarding every
// ContentDelta to the bridge as it passes through on its way to the
// assembler, satisfying "forward to Frontend Bridge for incremental
// rendering" without the assembler needing to know about the bridge.
type deltaForwardingStream struct {
	inner  brainclient.InteractionStream
	bridge frontend.Bridge
}

func (d deltaForwardingStream) Next() (wire.InteractionEvent, error) {
	ev, err := d.inner.Next()
	if err != nil {
		return nil, err
	}
	if delta, ok := ev.(wire.ContentDelta); ok {
		d.bridge.RenderDelta(delta.PartIndex, delta.Delta)
	}
	return ev, nil
}

func (d deltaForwardingStream) Close() error { return d.inner.Close() }
