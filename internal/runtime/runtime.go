// Package runtime adapts the webhook handler and OAuth flow to the HTTP server and AWS Lambda hosts.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/isometry/linear-agent-app/internal/ingest"
	"github.com/isometry/linear-agent-app/internal/models"
	"github.com/pkg/errors"
)

const (
	PayloadAPIGatewayV1 = "api-gateway-v1"
	PayloadAPIGatewayV2 = "api-gateway-v2"
	PayloadLambdaURL    = "lambda-url"

	DefaultWebhookPath = "/webhook"

	AuthorizePath = "/oauth/authorize"
	CallbackPath  = "/oauth/callback"

	BodyGreeting = "Linear agent webhook receiver is running"
	BodyFallback = "OK"
)

// WebhookProcessor processes one webhook delivery. It is implemented by *handler.Handler.
type WebhookProcessor interface {
	Process(ctx context.Context, body []byte, headers map[string]string) (*ingest.Bus, error)
}

// OAuthFlow serves the OAuth endpoints. It is implemented by *oauth.Controller.
type OAuthFlow interface {
	Authorize(ctx context.Context) models.Response
	Callback(ctx context.Context, query url.Values, cookieHeader string) models.Response
}

// JobRunner runs agent jobs handed off by an earlier invocation. It is implemented by *dispatch.Worker.
type JobRunner interface {
	RunJob(ctx context.Context, job *dispatch.Job)
}

// Drainer waits for background work. It is implemented by *dispatch.BackgroundScheduler.
type Drainer interface {
	Wait(ctx context.Context) error
}

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithOAuth enables the /oauth/authorize and /oauth/callback routes.
func WithOAuth(flow OAuthFlow) Option {
	return func(r *Runtime) {
		r.oauth = flow
	}
}

// WithWebhookPath sets the path accepting webhook deliveries.
func WithWebhookPath(path string) Option {
	return func(r *Runtime) {
		if path != "" {
			r.webhookPath = path
		}
	}
}

// WithLambdaPayloadType sets the Lambda event shape handled by HandleEvent.
func WithLambdaPayloadType(payloadType string) Option {
	return func(r *Runtime) {
		r.payloadType = payloadType
	}
}

// WithJobRunner makes HandleEvent run handed off agent jobs instead of treating them as HTTP events.
func WithJobRunner(jobs JobRunner) Option {
	return func(r *Runtime) {
		r.jobs = jobs
	}
}

// WithDrainer makes HandleEvent wait for short lived background work, such as archive uploads, before
// returning, since the Lambda sandbox is frozen once the invocation ends. Agent work must not go through
// the drained scheduler: it is handed off to a separate invocation.
func WithDrainer(drainer Drainer) Option {
	return func(r *Runtime) {
		r.drainer = drainer
	}
}

type Runtime struct {
	logger      *slog.Logger
	handler     WebhookProcessor
	oauth       OAuthFlow
	jobs        JobRunner
	drainer     Drainer
	webhookPath string
	payloadType string
}

// NewRuntime creates a new runtime instance
func NewRuntime(handler WebhookProcessor, opts ...Option) *Runtime {
	_inst := &Runtime{handler: handler, webhookPath: DefaultWebhookPath, payloadType: PayloadAPIGatewayV2}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Route dispatches a host independent request to the matching endpoint.
func (r *Runtime) Route(ctx context.Context, req models.Request) models.Response {
	logger := r.logger.With(slog.String("method", req.Method), slog.String("path", req.Path))

	switch {
	case req.Method == http.MethodPost && req.Path == r.webhookPath:
		bus, err := r.handler.Process(ctx, req.Body, req.Headers)
		if err != nil {
			logger.Debug("webhook failed", slog.Any("error", err))
		}
		return bus.Response
	case req.Method == http.MethodGet && req.Path == "/":
		return models.Text(http.StatusOK, BodyGreeting)
	case req.Method == http.MethodGet && req.Path == AuthorizePath && r.oauth != nil:
		return r.oauth.Authorize(ctx)
	case req.Method == http.MethodGet && req.Path == CallbackPath && r.oauth != nil:
		return r.oauth.Callback(ctx, req.Query, req.Header("Cookie"))
	default:
		logger.Debug("unmatched route")
		return models.Text(http.StatusOK, BodyFallback)
	}
}

// ServeHTTP is the HTTP handler for the runtime
func (r *Runtime) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	r.logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.String("method", req.Method), slog.String("path", req.URL.Path))

	body, err := io.ReadAll(req.Body)
	if err != nil {
		r.logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.Text(http.StatusInternalServerError, "failed to read request body"), err, rw)
		return
	}

	headers := make(map[string]string, len(req.Header))
	for k, v := range req.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	if cookies := req.Header.Values("Cookie"); len(cookies) > 0 {
		headers["cookie"] = strings.Join(cookies, "; ")
	}

	response := r.Route(req.Context(), models.Request{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query(),
		Body:    body,
		Headers: headers,
	})
	helpers.RespondHTTP(response, nil, rw)
}

// HandleEvent is the Lambda handler for the runtime.
// Handed off agent jobs run to completion in this invocation. HTTP events are routed, and background work
// scheduled by the request is drained before the already computed response is returned.
func (r *Runtime) HandleEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	if r.jobs != nil {
		if job, ok := dispatch.DecodeJob(raw); ok {
			r.logger.Info("received agent job", slog.Any("job", job))
			r.jobs.RunJob(ctx, job)
			return nil, nil
		}
	}
	r.logger.Info("received Lambda event", slog.String("payloadType", r.payloadType))

	var (
		response any
		err      error
	)
	switch r.payloadType {
	case PayloadAPIGatewayV1:
		response, err = r.handleAPIGatewayV1(ctx, raw)
	case PayloadAPIGatewayV2:
		response, err = r.handleAPIGatewayV2(ctx, raw)
	case PayloadLambdaURL:
		response, err = r.handleLambdaURL(ctx, raw)
	default:
		return nil, errors.Errorf("unsupported lambda payload type: %s", r.payloadType)
	}
	r.drain(ctx)
	return response, err
}

func (r *Runtime) handleAPIGatewayV1(ctx context.Context, raw json.RawMessage) (events.APIGatewayProxyResponse, error) {
	var event events.APIGatewayProxyRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return events.APIGatewayProxyResponse{}, errors.Wrap(err, "failed to decode API Gateway v1 event")
	}
	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest, Body: err.Error()}, nil
	}

	query := url.Values{}
	for k, v := range event.MultiValueQueryStringParameters {
		query[k] = v
	}
	for k, v := range event.QueryStringParameters {
		if _, ok := query[k]; !ok {
			query.Set(k, v)
		}
	}

	response := r.Route(ctx, models.Request{
		Method:  event.HTTPMethod,
		Path:    event.Path,
		Query:   query,
		Body:    body,
		Headers: lowerHeaders(event.Headers, nil),
	})
	return events.APIGatewayProxyResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
	}, nil
}

func (r *Runtime) handleAPIGatewayV2(ctx context.Context, raw json.RawMessage) (events.APIGatewayV2HTTPResponse, error) {
	var event events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return events.APIGatewayV2HTTPResponse{}, errors.Wrap(err, "failed to decode API Gateway v2 event")
	}
	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: err.Error()}, nil
	}
	query, _ := url.ParseQuery(event.RawQueryString)

	response := r.Route(ctx, models.Request{
		Method:  event.RequestContext.HTTP.Method,
		Path:    event.RawPath,
		Query:   query,
		Body:    body,
		Headers: lowerHeaders(event.Headers, event.Cookies),
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
	}, nil
}

func (r *Runtime) handleLambdaURL(ctx context.Context, raw json.RawMessage) (events.LambdaFunctionURLResponse, error) {
	var event events.LambdaFunctionURLRequest
	if err := json.Unmarshal(raw, &event); err != nil {
		return events.LambdaFunctionURLResponse{}, errors.Wrap(err, "failed to decode Lambda function URL event")
	}
	body, err := decodeBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return events.LambdaFunctionURLResponse{StatusCode: http.StatusBadRequest, Body: err.Error()}, nil
	}
	query, _ := url.ParseQuery(event.RawQueryString)

	response := r.Route(ctx, models.Request{
		Method:  event.RequestContext.HTTP.Method,
		Path:    event.RawPath,
		Query:   query,
		Body:    body,
		Headers: lowerHeaders(event.Headers, event.Cookies),
	})
	return events.LambdaFunctionURLResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
	}, nil
}

func (r *Runtime) drain(ctx context.Context) {
	if r.drainer == nil {
		return
	}
	start := time.Now()
	if err := r.drainer.Wait(ctx); err != nil {
		r.logger.Error("background work did not settle before the invocation ended", slog.Any("error", err))
		return
	}
	r.logger.Debug("background work settled", slog.Duration("elapsed", time.Since(start)))
}

// lowerHeaders lower-cases header names. Payload v2 events carry cookies outside the headers.
func lowerHeaders(headers map[string]string, cookies []string) map[string]string {
	lch := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		lch[strings.ToLower(k)] = v
	}
	if len(cookies) > 0 {
		lch["cookie"] = strings.Join(cookies, "; ")
	}
	return lch
}

func decodeBody(body string, isBase64 bool) ([]byte, error) {
	if !isBase64 {
		return []byte(body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base64 body")
	}
	return decoded, nil
}
