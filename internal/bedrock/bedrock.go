// Package bedrock is a minimal client for the Amazon Bedrock Agent Runtime
// InvokeAgent API. It opens one session-less streamed call per request and
// surfaces the response as a channel of events, leaving retries, credential
// management, and result shaping to callers.
package bedrock

import "context"

// Event types emitted on the stream channel.
const (
	EventDelta = "delta" // one decoded chunk of response text
	EventDone  = "done"  // stream completed normally
	EventError = "error" // stream failed; Error carries the message
)

// StreamEvent is one decoded event from an agent invocation stream.
type StreamEvent struct {
	Type    string
	Content string // text payload (type "delta")
	Error   string // error message (type "error")
}

// InvokeRequest identifies the agent to call and the prompt to send.
type InvokeRequest struct {
	AgentID      string
	AgentAliasID string
	SessionID    string
	InputText    string
}

// Invoker is the capability the comparison engine consumes: open one
// streamed agent call and return its event channel. The channel is closed
// after a terminal "done" or "error" event.
type Invoker interface {
	InvokeAgent(ctx context.Context, req InvokeRequest) (<-chan StreamEvent, error)
	Region() string
}
