package tracing

import (
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// TracingTransport starts a client span for requests whose context carries a span,
// and propagates it through the request headers.
type TracingTransport struct {
	Transport http.RoundTripper
}

func NewTracingClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &TracingTransport{Transport: base}}
}

func (t *TracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	parentSpan := opentracing.SpanFromContext(req.Context())
	if parentSpan == nil {
		return t.Transport.RoundTrip(req)
	}

	tracer := parentSpan.Tracer()
	childSpan := tracer.StartSpan(req.Method+" "+req.URL.Path, opentracing.ChildOf(parentSpan.Context()))
	defer childSpan.Finish()

	ext.SpanKindRPCClient.Set(childSpan)
	ext.HTTPUrl.Set(childSpan, req.URL.String())
	ext.HTTPMethod.Set(childSpan, req.Method)

	// headers are mutated, so work on a copy
	outgoing := req.Clone(req.Context())
	_ = tracer.Inject(childSpan.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(outgoing.Header))

	res, err := t.Transport.RoundTrip(outgoing)
	if err != nil {
		ext.Error.Set(childSpan, true)
		childSpan.SetTag("error.detail", err.Error())
		return res, err
	}

	ext.HTTPStatusCode.Set(childSpan, uint16(res.StatusCode))
	ext.Error.Set(childSpan, res.StatusCode >= 400)
	return res, nil
}
