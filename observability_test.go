package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoginMetrics(t *testing.T) {
	srv := newAuthServer(t)
	reg := prometheus.NewRegistry()
	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) { b.WithRegisterer(reg) })
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	srv.setLogin(respond(http.StatusUnauthorized, `{"detail":"no"}`))
	_, _ = c.Login(ctx, "ana", "bad")
	c.Logout(ctx)

	if got := testutil.ToFloat64(c.metrics.login.WithLabelValues("success")); got != 1 {
		t.Fatalf("login success = %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.login.WithLabelValues("invalid_credentials")); got != 1 {
		t.Fatalf("login invalid = %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.logout.WithLabelValues("local_only")); got != 1 {
		t.Fatalf("logout local_only = %v", got)
	}
	if n := testutil.CollectAndCount(c.metrics.loginLatency); n != 1 {
		t.Fatalf("expected latency histogram collected, got %d", n)
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
}

func TestMetricsDisabledIsNil(t *testing.T) {
	if m := NewMetrics(MetricsConfig{Enabled: false}, prometheus.NewRegistry()); m != nil {
		t.Fatal("expected nil metrics when disabled")
	}
	var m *Metrics
	m.observeLogin("success", time.Second)
	m.observeLogout("clean")
	m.incSelfHeal()
	m.observeGuard("protected")
	m.incGuardStale()
	m.incInvalidated("unauthorized")
	m.incAuditDropped("buffer_full")
}

func TestLoginSpans(t *testing.T) {
	srv := newAuthServer(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) { b.WithTracerProvider(tp) })
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	srv.setLogin(respond(http.StatusUnauthorized, `{"detail":"no"}`))
	if _, err := c.Login(ctx, "ana", "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Name() != "auth.login" {
			t.Fatalf("unexpected span %q", s.Name())
		}
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("successful login span must not be an error")
	}
	if !hasAttr(spans[0].Attributes(), "auth.user_id", "7") {
		t.Fatalf("expected user id attribute, got %v", spans[0].Attributes())
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatal("failed login span must carry error status")
	}
	if !hasAttr(spans[1].Attributes(), "auth.profile", "member") {
		t.Fatalf("expected profile attribute, got %v", spans[1].Attributes())
	}
}

func hasAttr(attrs []attribute.KeyValue, key, value string) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.AsString() == value {
			return true
		}
	}
	return false
}

func TestAuditEventsCarryClientIdentity(t *testing.T) {
	srv := newAuthServer(t)
	sink := NewChannelSink(16)
	c := newTestClient(t, testConfig(ProfileMember, srv), func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()

	if _, err := c.Login(ctx, "ana", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	c.Logout(ctx)

	want := []string{AuditLoginSuccess, AuditLogout}
	for _, eventType := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != eventType {
				t.Fatalf("expected %s, got %s", eventType, ev.EventType)
			}
			if ev.ClientID != c.ID() || ev.Profile != "member" || ev.UserID != "7" {
				t.Fatalf("unexpected identity on %s: %+v", eventType, ev)
			}
			if ev.Timestamp.IsZero() {
				t.Fatalf("expected timestamp on %s", eventType)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
	if c.AuditDropped() != 0 {
		t.Fatalf("expected no drops, got %d", c.AuditDropped())
	}
}

func TestDefaultAuditSinkLogsThroughZap(t *testing.T) {
	srv := newAuthServer(t)
	core, logs := observer.New(zapcore.InfoLevel)

	cfg := testConfig(ProfileMember, srv)
	cfg.Audit.Enabled = true
	c := newTestClient(t, cfg, func(b *Builder) { b.WithLogger(zap.New(core)) })

	if _, err := c.Login(context.Background(), "ana", "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	c.Close()

	if logs.FilterMessage("login succeeded").Len() != 1 {
		t.Fatal("expected login log line")
	}
	audits := logs.FilterMessage(AuditLoginSuccess)
	if audits.Len() != 1 {
		t.Fatalf("expected one audit log line, got %d", audits.Len())
	}
	if !hasLogField(audits.All()[0], "client_id", c.ID()) {
		t.Fatal("expected client_id on audit log line")
	}
}

func hasLogField(entry observer.LoggedEntry, key, value string) bool {
	for _, f := range entry.Context {
		if f.Key == key && f.String == value {
			return true
		}
	}
	return false
}
