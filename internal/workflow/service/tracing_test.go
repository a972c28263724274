package service_test

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"dealflow/internal/workflow/service"
)

func (s *WorkflowServiceSuite) TestSpans() {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	s.service = s.newService(service.WithTracer(provider.Tracer("workflow-test")))

	t := s.createPurchase(nil)
	_, err := s.service.Advance(s.ctx, t.ID, s.current(t.ID).ID)
	s.requireCode(err, "E_ADVANCE_BLOCKED")

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		byName[span.Name()] = span
	}

	s.Run("create is traced without a transaction id", func() {
		s.Contains(byName, "workflow.CreateTransaction")
	})

	s.Run("a refused advance marks its span as failed", func() {
		span, ok := byName["workflow.Advance"]
		s.Require().True(ok)
		s.Equal(codes.Error, span.Status().Code)
		s.Equal("E_ADVANCE_BLOCKED", span.Status().Description)
		s.Contains(span.Attributes(), attribute.String("dealflow.transaction.id", t.ID.String()))
		s.NotEmpty(span.Events(), "error should be recorded as an event")
	})
}
