package services_test

import (
	"errors"
	"strings"
	"testing"

	"streamline/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStagingFailure, "staging_input", "download", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStagingFailure) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"staging_input", "download", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{nil, ""},
		{services.Wrap(services.ErrInvalidRequest, "validating", "", "bad", nil), services.KindInvalidRequest},
		{services.Wrap(services.ErrPreconditionFailed, "awaiting_pipeline", "", "none active", nil), services.KindPreconditionFailed},
		{services.Wrap(services.ErrStagingFailure, "staging_input", "", "", errors.New("io")), services.KindStaging},
		{services.Wrap(services.ErrNotFound, "status", "read", "", nil), services.KindNotFound},
		{errors.New("plain"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
