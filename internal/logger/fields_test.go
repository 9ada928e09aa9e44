package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  cohort_id  ", Value: "  spring-25  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "cohort_id" || fields[0].String != "spring-25" {
		t.Fatalf("unexpected field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if ctx := entries[0].ContextMap(); ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	if WithFields(nil, zap.String("baz", "qux")) == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
}

func TestWithProviderAndRun(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithProvider(base, "gemini", "gemini-2.5-flash").Info("explain")
	WithRun(base, "spring-25", "run-1", "").Info("matched")

	entries := observed.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	provider := entries[0].ContextMap()
	if provider[FieldProvider] != "gemini" || provider[FieldModel] != "gemini-2.5-flash" {
		t.Fatalf("unexpected provider fields: %v", provider)
	}

	run := entries[1].ContextMap()
	if run[FieldCohort] != "spring-25" || run[FieldRun] != "run-1" {
		t.Fatalf("unexpected run fields: %v", run)
	}
	if _, ok := run[FieldMode]; ok {
		t.Fatalf("empty mode must be omitted: %v", run)
	}

	WithRun(nil, "", "", "").Info("no panic")
}
