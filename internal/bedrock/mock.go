package bedrock

import "context"

// MockInvoker is a test double for Invoker.
type MockInvoker struct {
	RegionName string
	InvokeFunc func(ctx context.Context, req InvokeRequest) (<-chan StreamEvent, error)
}

func (m *MockInvoker) Region() string {
	if m.RegionName == "" {
		return "us-west-2"
	}
	return m.RegionName
}

func (m *MockInvoker) InvokeAgent(ctx context.Context, req InvokeRequest) (<-chan StreamEvent, error) {
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, req)
	}
	ch := make(chan StreamEvent, 2)
	ch <- StreamEvent{Type: EventDelta, Content: "mock response"}
	ch <- StreamEvent{Type: EventDone}
	close(ch)
	return ch, nil
}

// ChunkStream builds a closed event channel delivering the given chunks then
// done. Handy for stubbing happy-path invocations in tests.
func ChunkStream(chunks ...string) <-chan StreamEvent {
	ch := make(chan StreamEvent, len(chunks)+1)
	for _, c := range chunks {
		ch <- StreamEvent{Type: EventDelta, Content: c}
	}
	ch <- StreamEvent{Type: EventDone}
	close(ch)
	return ch
}

// ErrorStream builds a closed event channel delivering a single error event.
func ErrorStream(msg string) <-chan StreamEvent {
	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{Type: EventError, Error: msg}
	close(ch)
	return ch
}
