package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/logging"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/stream"
)

var log = logging.Get()

var (
	// ErrSessionUsed is returned when Generate is called twice on the same
	// controller. Controllers are one-shot: construct one per request.
	ErrSessionUsed = errors.New("generation session already used")

	// ErrServer marks an application-level error event from the service.
	// It is terminal for the session and never triggers the fallback.
	ErrServer = errors.New("generation service reported an error")

	errCancelled = errors.New("session cancelled")
)

// DefaultTimeout bounds one generation session end to end, fallback included.
const DefaultTimeout = 60 * time.Second

// Client is the slice of the generation API the controller drives.
type Client interface {
	OpenStream(ctx context.Context, req ideas.GenerationRequest) (io.ReadCloser, error)
	Generate(ctx context.Context, req ideas.GenerationRequest) (*ideas.Idea, error)
}

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Callbacks receive the session's live events and terminal outcome.
// Exactly one of OnComplete / OnError fires per session, unless the
// session is cancelled first, in which case neither does.
type Callbacks struct {
	OnEvent    func(stream.Event)
	OnComplete func(ideas.Idea)
	OnError    func(error)
}

// Controller owns one in-flight generation request: the open connection,
// the decode loop, and the transient accumulator for partial output.
// One-shot: ownership ends at complete, error, or cancellation.
type Controller struct {
	client  Client
	timeout time.Duration

	mu        sync.Mutex
	state     State
	cancelCtx context.CancelFunc
	cancelled bool

	title    strings.Builder
	content  strings.Builder
	progress float64
}

// New creates a one-shot controller. A timeout <= 0 uses DefaultTimeout.
func New(client Client, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{client: client, timeout: timeout}
}

// Generate runs one generation session to its terminal state. Validation
// and reuse errors are returned synchronously before any network call;
// session outcomes are delivered through the callbacks. When the streaming
// attempt fails at the transport level, exactly one non-streaming retry is
// made before OnError fires.
func (c *Controller) Generate(req ideas.GenerationRequest, cb Callbacks) error {
	if err := req.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrSessionUsed
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancelCtx = cancel
	c.state = StateConnecting
	c.mu.Unlock()
	defer cancel()

	if !req.Stream {
		idea, err := c.client.Generate(ctx, req)
		if err != nil {
			if !c.isCancelled() {
				c.fail(cb, fmt.Errorf("generation failed: %v", err))
			}
			return nil
		}
		c.complete(cb, *idea)
		return nil
	}

	streamErr := c.runStream(ctx, req, cb)
	if streamErr == nil || errors.Is(streamErr, errCancelled) || c.isCancelled() {
		return nil
	}

	if errors.Is(streamErr, ErrServer) {
		// The server explicitly signalled failure; retrying would not help.
		c.fail(cb, streamErr)
		return nil
	}

	// Transport failure: exactly one non-streaming retry, which must not
	// itself retry on failure.
	log.Info("Streaming generation failed (%v), falling back to non-streaming", streamErr)
	fallbackReq := req
	fallbackReq.Stream = false
	idea, err := c.client.Generate(ctx, fallbackReq)
	if err != nil {
		if !c.isCancelled() {
			c.fail(cb, fmt.Errorf("generation failed: %v (fallback failed: %v)", streamErr, err))
		}
		return nil
	}
	c.complete(cb, *idea)
	return nil
}

// runStream drives the decode loop over the streaming response body.
// Returns nil once a complete event has been handled.
func (c *Controller) runStream(ctx context.Context, req ideas.GenerationRequest, cb Callbacks) error {
	body, err := c.client.OpenStream(ctx, req)
	if err != nil {
		if c.isCancelled() {
			return errCancelled
		}
		return err
	}
	defer body.Close()

	c.setState(StateStreaming)
	log.Debug("Generation stream open")

	var dec stream.LineDecoder
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				done, err := c.handleLine(line, cb)
				if err != nil || done {
					return err
				}
			}
		}
		if readErr != nil {
			if c.isCancelled() {
				return errCancelled
			}
			if readErr == io.EOF {
				return errors.New("stream ended without a complete event")
			}
			return readErr
		}
	}
}

// handleLine parses one decoded line and advances the session. done is true
// once the terminal complete event has been dispatched.
func (c *Controller) handleLine(line string, cb Callbacks) (done bool, err error) {
	ev, ok := stream.ParseLine(line)
	if !ok {
		return false, nil
	}

	log.Stream(string(ev.Type), ev.Content)

	switch ev.Type {
	case stream.EventStart:
		c.mu.Lock()
		c.title.Reset()
		c.content.Reset()
		c.progress = 0
		c.mu.Unlock()

	case stream.EventChunk:
		c.mu.Lock()
		c.content.WriteString(ev.Content)
		if ev.Progress != nil {
			// Progress is passed through as reported, without clamping
			// or smoothing.
			c.progress = *ev.Progress
		}
		c.mu.Unlock()

	case stream.EventTitleChar:
		c.mu.Lock()
		c.title.WriteString(ev.Content)
		c.mu.Unlock()

	case stream.EventContentChar:
		c.mu.Lock()
		c.content.WriteString(ev.Content)
		c.mu.Unlock()

	case stream.EventComplete:
		if ev.Idea == nil {
			log.Debug("Dropping complete event without embedded idea")
			return false, nil
		}
		if !c.dispatchEvent(cb, ev) {
			return false, errCancelled
		}
		c.complete(cb, *ev.Idea)
		return true, nil

	case stream.EventError:
		if !c.dispatchEvent(cb, ev) {
			return false, errCancelled
		}
		return false, fmt.Errorf("%w: %s", ErrServer, ev.Message)
	}

	if !c.dispatchEvent(cb, ev) {
		return false, errCancelled
	}
	return false, nil
}

// dispatchEvent delivers an event unless the session has been cancelled.
// The callback runs outside the lock so it may call Cancel itself.
func (c *Controller) dispatchEvent(cb Callbacks, ev stream.Event) bool {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	if cb.OnEvent != nil {
		cb.OnEvent(ev)
	}
	return true
}

func (c *Controller) complete(cb Callbacks, idea ideas.Idea) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.state = StateCompleted
	c.mu.Unlock()
	if cb.OnComplete != nil {
		cb.OnComplete(idea)
	}
}

func (c *Controller) fail(cb Callbacks, err error) {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.state = StateFailed
	c.mu.Unlock()
	log.Info("Generation session failed: %v", err)
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// Cancel aborts an in-flight session: the underlying body reader is
// released promptly and no callback fires afterwards. Cancelling an idle
// or already-terminal session is a no-op; Cancel is safe to call from any
// callback.
func (c *Controller) Cancel() {
	c.mu.Lock()
	switch c.state {
	case StateIdle, StateCompleted, StateFailed, StateCancelled:
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.state = StateCancelled
	cancel := c.cancelCtx
	c.mu.Unlock()

	log.Info("Generation session cancelled")
	if cancel != nil {
		cancel()
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Accumulated returns the partial title, content, and last reported
// progress. Partial output survives a terminal error, so callers can keep
// what was already rendered.
func (c *Controller) Accumulated() (title, content string, progress float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title.String(), c.content.String(), c.progress
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if !c.cancelled {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Controller) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
