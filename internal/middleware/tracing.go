package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const spanLocalKey = "otel-span"

// TracingConfig holds the configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Skip        func(*fiber.Ctx) bool
}

// Tracing starts a server span per request on the global tracer provider
func Tracing(cfg TracingConfig) fiber.Handler {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "partfinder"
	}

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		method := c.Method()
		path := c.Path()

		tr := otel.GetTracerProvider().Tracer(cfg.ServiceName)
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := tr.Start(ctx, method+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(method),
				semconv.URLPath(path),
			),
		)
		defer span.End()

		c.Locals(spanLocalKey, span)
		c.SetUserContext(ctx)

		err := c.Next()

		span.SetAttributes(
			semconv.HTTPRoute(c.Route().Path),
			semconv.HTTPResponseStatusCode(c.Response().StatusCode()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("error", true))
		}

		return err
	}
}

// SpanFromContext gets the current span from fiber context
func SpanFromContext(c *fiber.Ctx) trace.Span {
	span, ok := c.Locals(spanLocalKey).(trace.Span)
	if !ok {
		return nil
	}
	return span
}
