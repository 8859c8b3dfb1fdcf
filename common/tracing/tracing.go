// Package tracing carries an OpenTracing span context across the wire
// so a server-side handler span can be a child of the client's request
// span, the same way runtime/host/protocol does it for the Runtime Host
// Protocol in the teacher repo.
package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer installs a process-wide Jaeger tracer under the given
// service name and returns a closer to flush spans on shutdown. If
// tracing cannot be initialized, a no-op tracer is installed and the
// error is returned for logging purposes only — tracing is diagnostic,
// never load-bearing.
func InitTracer(serviceName string) (io.Closer, error) {
	cfg := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans: false,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		return io.NopCloser(nil), err
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// SpanContextToBinary marshals a span context for wire transport.
func SpanContextToBinary(sc opentracing.SpanContext) ([]byte, error) {
	jsc, ok := sc.(jaeger.SpanContext)
	if !ok {
		return nil, nil
	}
	return []byte(jsc.String()), nil
}

// SpanContextFromBinary unmarshals a span context carried over the
// wire. An empty input yields (nil, nil) — absent span context is not
// an error, it just means the caller did not propagate one.
func SpanContextFromBinary(data []byte) (opentracing.SpanContext, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return jaeger.ContextFromString(string(data))
}
