package campusAuth

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrEthical07/campusAuth"

const (
	spanLogin     = "campusAuth.Login"
	spanRefresh   = "campusAuth.Refresh"
	spanLogout    = "campusAuth.Logout"
	spanLogoutAll = "campusAuth.LogoutAll"
)

const (
	attrOutcome   = attribute.Key("campusauth.outcome")
	attrErrorKind = attribute.Key("campusauth.error_kind")
	attrAccountID = attribute.Key("campusauth.account_id")
	attrTenantID  = attribute.Key("campusauth.tenant_id")
)

func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}

// endSpan records the outcome. Expected rejections (bad credentials, bad
// tokens) are not span errors; only Unavailable and Unrecognized are.
func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		if len(attrs) == 0 || attrs[0].Key != attrOutcome {
			attrs = append(attrs, attrOutcome.String("success"))
		}
		span.SetAttributes(attrs...)
		return
	}
	kind := KindOf(err)
	attrs = append(attrs,
		attrOutcome.String("failure"),
		attrErrorKind.String(kind.String()),
	)
	span.SetAttributes(attrs...)
	switch kind {
	case KindUnavailable, KindUnrecognized, kindUnknown:
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
	}
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attrOutcome.String(outcome)
}

func accountAttrs(accountID, tenantID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if accountID != "" {
		attrs = append(attrs, attrAccountID.String(accountID))
	}
	if tenantID != "" {
		attrs = append(attrs, attrTenantID.String(tenantID))
	}
	return attrs
}

func traceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
