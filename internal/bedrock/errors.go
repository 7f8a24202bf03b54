package bedrock

import (
	"fmt"
	"strings"
)

// ServiceError is returned when the agent runtime rejects or aborts a call.
type ServiceError struct {
	Type    string // exception type reported by the service, if any
	Message string
	Status  int // HTTP status for request-level failures, 0 for mid-stream ones
}

func (e *ServiceError) Error() string {
	switch {
	case e.Type != "" && e.Status > 0:
		return fmt.Sprintf("bedrock: %s (%d): %s", e.Type, e.Status, e.Message)
	case e.Type != "":
		return fmt.Sprintf("bedrock: %s: %s", e.Type, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("bedrock: %d: %s", e.Status, e.Message)
	default:
		return "bedrock: " + e.Message
	}
}

// stopSequencesMarker appears in service errors when the agent's inference
// configuration carries stop sequences that the underlying model rejects.
const stopSequencesMarker = "stopSequences"

// stopSequencesHint walks the user through removing the unsupported
// parameter from the agent configuration.
const stopSequencesHint = "\n\nSolution: This model doesn't support stop sequences. " +
	"You need to update your Bedrock agent configuration:\n" +
	"1. Go to AWS Console -> Bedrock -> Agents\n" +
	"2. Select your agent and edit it\n" +
	"3. In the model settings, remove any stop sequences from the Inference Configuration\n" +
	"4. Save and create a new version/alias"

// Remediate annotates known error patterns with a remediation hint.
// Messages without a known pattern are returned unmodified.
func Remediate(msg string) string {
	if strings.Contains(msg, stopSequencesMarker) {
		return msg + stopSequencesHint
	}
	return msg
}
