package bedrock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorFormats(t *testing.T) {
	tests := []struct {
		name string
		err  ServiceError
		want string
	}{
		{
			name: "type and status",
			err:  ServiceError{Type: "throttlingException", Status: 429, Message: "slow down"},
			want: "bedrock: throttlingException (429): slow down",
		},
		{
			name: "type only",
			err:  ServiceError{Type: "validationException", Message: "bad input"},
			want: "bedrock: validationException: bad input",
		},
		{
			name: "status only",
			err:  ServiceError{Status: 500, Message: "boom"},
			want: "bedrock: 500: boom",
		},
		{
			name: "message only",
			err:  ServiceError{Message: "boom"},
			want: "bedrock: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRemediateAppendsHint(t *testing.T) {
	msg := "dependencyFailedException: stopSequences is not supported by this model"
	out := Remediate(msg)

	assert.Contains(t, out, msg)
	assert.Contains(t, out, "remove any stop sequences")
	assert.Contains(t, out, "Inference Configuration")
}

func TestRemediatePassthrough(t *testing.T) {
	msg := "throttlingException: too many requests"
	assert.Equal(t, msg, Remediate(msg))
}

func TestChunkStream(t *testing.T) {
	events := collect(ChunkStream("a", "b"))
	assert.Equal(t, []StreamEvent{
		{Type: EventDelta, Content: "a"},
		{Type: EventDelta, Content: "b"},
		{Type: EventDone},
	}, events)
}

func TestErrorStream(t *testing.T) {
	events := collect(ErrorStream("bad"))
	assert.Equal(t, []StreamEvent{{Type: EventError, Error: "bad"}}, events)
}
