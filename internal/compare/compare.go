// Package compare implements the fan-out comparison engine: one prompt is
// sent to several Bedrock agent configurations concurrently and every
// configuration yields exactly one tagged result. One agent failing never
// cancels or delays its siblings; the batch as a whole cannot fail once
// validation has passed.
package compare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentarena/agentarena/internal/bedrock"
	"github.com/agentarena/agentarena/internal/logging"
)

// DefaultMaxWorkers caps concurrent invocations. Comparison batches are
// small by design, so the pool never needs to be larger than this.
const DefaultMaxWorkers = 4

// NoResponsePlaceholder marks a successful invocation whose stream yielded
// no text, so "agent returned nothing" stays distinguishable from a real
// empty response downstream.
const NoResponsePlaceholder = "No response received"

// AgentConfig identifies one agent configuration in a comparison batch.
// Name keys the result mapping and must be unique within the batch.
type AgentConfig struct {
	Name         string `json:"name"`
	AgentID      string `json:"agentId"`
	AgentAliasID string `json:"agentAliasId"`
	SessionID    string `json:"sessionId"`
}

// Result is the immutable outcome of one agent invocation.
type Result struct {
	Success   bool          `json:"success"`
	Response  string        `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	Model     string        `json:"model"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Batch holds the results of one comparison run, keyed by agent name.
// Each run produces a fresh batch; batches are never merged.
type Batch struct {
	ID        string            `json:"id"`
	Prompt    string            `json:"prompt"`
	Region    string            `json:"region"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
	Results   map[string]Result `json:"results"`
}

// ValidationError reports configuration problems found before any network
// activity. When it is returned, zero invocations were attempted.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid comparison request: %s", strings.Join(e.Issues, "; "))
}

// Observer receives completion notifications, e.g. for metrics.
type Observer interface {
	InvocationFinished(agent string, success bool, d time.Duration)
	BatchFinished(agents int, d time.Duration)
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithMaxWorkers overrides the concurrency cap.
func WithMaxWorkers(n int) Option {
	return func(c *Comparer) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithObserver attaches a completion observer.
func WithObserver(o Observer) Option {
	return func(c *Comparer) { c.observer = o }
}

// WithOnResult registers a per-result progress hook. It is called from
// worker goroutines as results land, so the callback must be safe for
// concurrent use.
func WithOnResult(fn func(agent string, r Result)) Option {
	return func(c *Comparer) { c.onResult = fn }
}

// Comparer fans one prompt out to several agents and joins the results.
// It is a pure function of its inputs: no state survives between runs.
type Comparer struct {
	invoker    bedrock.Invoker
	maxWorkers int
	observer   Observer
	onResult   func(string, Result)
	log        *logging.Logger
}

// New creates a Comparer using the given invoker.
func New(invoker bedrock.Invoker, log *logging.Logger, opts ...Option) *Comparer {
	c := &Comparer{
		invoker:    invoker,
		maxWorkers: DefaultMaxWorkers,
		log:        log.Sub("compare"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run invokes every agent concurrently and blocks until all have finished.
// This is a full join: no early return on first completion or first failure.
// The returned batch maps each agent name to exactly one result.
func (c *Comparer) Run(ctx context.Context, prompt string, agents []AgentConfig) (*Batch, error) {
	if err := validate(prompt, agents); err != nil {
		return nil, err
	}

	start := time.Now()
	c.log.Info().Int("agents", len(agents)).Msg("starting comparison")

	// Workers write to disjoint slice slots; the map is built after the
	// join, so no locking is needed anywhere.
	results := make([]Result, len(agents))

	var eg errgroup.Group
	eg.SetLimit(min(len(agents), c.maxWorkers))

	for i, agent := range agents {
		eg.Go(func() error {
			res := c.invokeOne(ctx, agent, prompt)
			results[i] = res

			if c.observer != nil {
				c.observer.InvocationFinished(agent.Name, res.Success, res.Duration)
			}
			if c.onResult != nil {
				c.onResult(agent.Name, res)
			}

			// Workers never surface errors: a failed invocation is a
			// failure-tagged result, not a reason to cancel siblings.
			return nil
		})
	}
	eg.Wait()

	batch := &Batch{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		Region:    c.invoker.Region(),
		StartedAt: start,
		Duration:  time.Since(start),
		Results:   make(map[string]Result, len(agents)),
	}
	for i, agent := range agents {
		batch.Results[agent.Name] = results[i]
	}

	if c.observer != nil {
		c.observer.BatchFinished(len(agents), batch.Duration)
	}
	c.log.Info().
		Str("batch", batch.ID).
		Dur("duration", batch.Duration).
		Msg("comparison finished")

	return batch, nil
}

// invokeOne performs a single agent invocation: open the stream, concatenate
// chunk payloads in delivery order, and tag the outcome. Every fault,
// including panics out of the invoker, becomes a failure result.
func (c *Comparer) invokeOne(ctx context.Context, agent AgentConfig, prompt string) (res Result) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("agent", agent.Name).Any("panic", r).Msg("invocation panicked")
			res = c.failure(agent, fmt.Sprintf("unexpected fault: %v", r), start)
		}
	}()

	events, err := c.invoker.InvokeAgent(ctx, bedrock.InvokeRequest{
		AgentID:      agent.AgentID,
		AgentAliasID: agent.AgentAliasID,
		SessionID:    agent.SessionID,
		InputText:    prompt,
	})
	if err != nil {
		return c.failure(agent, err.Error(), start)
	}

	var text strings.Builder
	for evt := range events {
		switch evt.Type {
		case bedrock.EventDelta:
			text.WriteString(evt.Content)
		case bedrock.EventError:
			return c.failure(agent, evt.Error, start)
		}
	}

	response := text.String()
	if response == "" {
		response = NoResponsePlaceholder
	}

	return Result{
		Success:   true,
		Response:  response,
		Model:     agent.Name,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
}

func (c *Comparer) failure(agent AgentConfig, msg string, start time.Time) Result {
	annotated := bedrock.Remediate(msg)
	c.log.Warn().Str("agent", agent.Name).Str("error", msg).Msg("invocation failed")
	return Result{
		Success:   false,
		Error:     annotated,
		Model:     agent.Name,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
}

// validate enforces the batch preconditions. Any violation rejects the
// whole batch before a single invocation starts.
func validate(prompt string, agents []AgentConfig) error {
	var issues []string

	if strings.TrimSpace(prompt) == "" {
		issues = append(issues, "prompt must not be empty")
	}
	if len(agents) == 0 {
		issues = append(issues, "at least one agent is required")
	}

	seen := make(map[string]bool, len(agents))
	for i, a := range agents {
		label := a.Name
		if label == "" {
			label = fmt.Sprintf("agent %d", i)
		}
		if a.Name == "" {
			issues = append(issues, fmt.Sprintf("%s: name is required", label))
		} else if seen[a.Name] {
			issues = append(issues, fmt.Sprintf("%s: duplicate name", label))
		}
		seen[a.Name] = true

		if a.AgentID == "" {
			issues = append(issues, fmt.Sprintf("%s: agentId is required", label))
		}
		if a.AgentAliasID == "" {
			issues = append(issues, fmt.Sprintf("%s: agentAliasId is required", label))
		}
		if a.SessionID == "" {
			issues = append(issues, fmt.Sprintf("%s: sessionId is required", label))
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
