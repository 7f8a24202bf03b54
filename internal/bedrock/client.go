package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/agentarena/agentarena/internal/logging"
)

// bearerTokenEnv carries a Bedrock API key. Full SigV4 signing stays with the
// caller via WithSigner; the default signer only knows bearer tokens.
const bearerTokenEnv = "AWS_BEARER_TOKEN_BEDROCK"

// SignFunc attaches credentials to an outgoing request.
type SignFunc func(*http.Request) error

// Client invokes Bedrock agents over HTTP with a streamed response.
type Client struct {
	region   string
	endpoint string
	http     *http.Client
	sign     SignFunc
	log      *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSigner replaces the request signer. Use this to plug in SigV4 signing.
func WithSigner(sign SignFunc) Option {
	return func(c *Client) { c.sign = sign }
}

// WithEndpoint overrides the service endpoint. Intended for tests.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// NewClient creates an agent runtime client for the given region.
func NewClient(region string, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		region:   region,
		endpoint: fmt.Sprintf("https://bedrock-agent-runtime.%s.amazonaws.com", region),
		// No client-side timeout: agent invocations stream for as long as
		// the service keeps the connection open.
		http: &http.Client{},
		sign: bearerTokenSigner,
		log:  log.Sub("bedrock"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Region returns the region this client targets.
func (c *Client) Region() string {
	return c.region
}

// bearerTokenSigner authorizes requests with the Bedrock API key from the
// environment. Credential resolution beyond that is not this package's job.
func bearerTokenSigner(req *http.Request) error {
	token := os.Getenv(bearerTokenEnv)
	if token == "" {
		return errors.New("no credentials: set " + bearerTokenEnv + " or supply a signer")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

type invokeAgentBody struct {
	InputText   string `json:"inputText"`
	EnableTrace bool   `json:"enableTrace"`
}

type chunkPayload struct {
	Bytes []byte `json:"bytes"` // base64-decoded by encoding/json
}

type exceptionPayload struct {
	Message string `json:"message"`
}

// InvokeAgent opens one streamed call to the agent and returns its event
// channel. Request-level failures (signing, connect, non-2xx status) are
// returned as errors before any event is emitted; mid-stream failures arrive
// as a terminal "error" event.
func (c *Client) InvokeAgent(ctx context.Context, req InvokeRequest) (<-chan StreamEvent, error) {
	payload, err := json.Marshal(invokeAgentBody{InputText: req.InputText})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	invokeURL := fmt.Sprintf("%s/agents/%s/agentAliases/%s/sessions/%s/text",
		c.endpoint,
		url.PathEscape(req.AgentID),
		url.PathEscape(req.AgentAliasID),
		url.PathEscape(req.SessionID),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/vnd.amazon.eventstream")

	if err := c.sign(httpReq); err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("invoking agent: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

		svcErr := &ServiceError{Status: resp.StatusCode, Message: string(body)}
		var exc exceptionPayload
		if json.Unmarshal(body, &exc) == nil && exc.Message != "" {
			svcErr.Message = exc.Message
		}
		svcErr.Type = resp.Header.Get("X-Amzn-Errortype")
		return nil, svcErr
	}

	events := make(chan StreamEvent)
	go c.consumeStream(resp.Body, req, events)
	return events, nil
}

// consumeStream decodes event-stream frames until EOF or a terminal error,
// emitting one event per chunk and exactly one terminal event.
func (c *Client) consumeStream(body io.ReadCloser, req InvokeRequest, events chan<- StreamEvent) {
	defer close(events)
	defer body.Close()

	for {
		msg, err := readEventMessage(body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				events <- StreamEvent{Type: EventDone}
				return
			}
			c.log.Warn().Err(err).Str("agentId", req.AgentID).Msg("stream decode failed")
			events <- StreamEvent{Type: EventError, Error: err.Error()}
			return
		}

		switch msg.Headers[":message-type"] {
		case "event":
			if msg.Headers[":event-type"] != "chunk" {
				// trace and return-control events are not part of the text stream
				continue
			}
			var chunk chunkPayload
			if err := json.Unmarshal(msg.Payload, &chunk); err != nil {
				c.log.Warn().Err(err).Msg("malformed chunk payload, skipping")
				continue
			}
			events <- StreamEvent{Type: EventDelta, Content: string(chunk.Bytes)}

		case "exception", "error":
			svcErr := &ServiceError{Type: msg.Headers[":exception-type"]}
			var exc exceptionPayload
			if json.Unmarshal(msg.Payload, &exc) == nil && exc.Message != "" {
				svcErr.Message = exc.Message
			} else {
				svcErr.Message = string(msg.Payload)
			}
			events <- StreamEvent{Type: EventError, Error: svcErr.Error()}
			return
		}
	}
}
