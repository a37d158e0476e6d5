package client

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"
	"github.com/boddenberg/storefront-payment-relay/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("client")

// maxBodySize caps how much of a provider answer is read.
const maxBodySize = 4 << 20

// IsBreakerSuccess tells the circuit breaker which outcomes are healthy.
// A provider rejecting a request (4xx) is still a healthy provider.
func IsBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var pe *domain.ErrProvider
	return errors.As(err, &pe) && pe.Rejected()
}

// provider performs guarded HTTP exchanges with one payment provider.
type provider struct {
	name       string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
}

// do sends req through the circuit breaker and returns the body of a 2xx
// answer. Any other outcome is returned as *domain.ErrProvider or
// *domain.ErrCircuitOpen.
func (p *provider) do(req *http.Request) (json.RawMessage, error) {
	return p.send(req, true)
}

// doUnguarded is do without the circuit breaker. Used where an HTTP error
// answer is an expected outcome rather than a provider fault.
func (p *provider) doUnguarded(req *http.Request) (json.RawMessage, error) {
	return p.send(req, false)
}

func (p *provider) send(req *http.Request, guarded bool) (json.RawMessage, error) {
	span := trace.SpanFromContext(req.Context())
	span.SetAttributes(
		attribute.String("provider", p.name),
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
		attribute.Bool("provider.guarded", guarded),
	)

	if err := p.bulkhead.Acquire(req.Context()); err != nil {
		return nil, &domain.ErrProvider{Provider: p.name, Err: err}
	}
	defer p.bulkhead.Release()

	var body json.RawMessage
	var err error
	if guarded {
		var result any
		result, err = p.cb.Execute(func() (any, error) {
			return p.roundTrip(req, span)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &domain.ErrCircuitOpen{Service: p.name}
		}
		if err == nil {
			body = result.(json.RawMessage)
		}
	} else {
		body, err = p.roundTrip(req, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return body, nil
}

func (p *provider) roundTrip(req *http.Request, span trace.Span) (json.RawMessage, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ErrProvider{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &domain.ErrProvider{Provider: p.name, StatusCode: resp.StatusCode, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ErrProvider{
			Provider:   p.name,
			StatusCode: resp.StatusCode,
			Details:    asJSON(body),
		}
	}
	return json.RawMessage(body), nil
}

// setHeaders stores headers without canonicalizing their names.
func setHeaders(req *http.Request, headers map[string]string) {
	for k, v := range headers {
		req.Header[k] = []string{v}
	}
}

// asJSON returns body as JSON, quoting it when it is plain text.
func asJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return quoted
}
