package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNormalizeQuery(t *testing.T) {
	tc := []struct {
		name  string
		query string
		want  string
	}{
		{name: "already normal", query: "daft punk", want: "daft punk"},
		{name: "extra whitespace", query: "  daft   punk  ", want: "daft punk"},
		{name: "tabs and newlines", query: "\tdaft\n punk", want: "daft punk"},
		{name: "blank", query: "   ", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuery(tt.query); got != tt.want {
				t.Errorf("NormalizeQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a valid uuid, got %q: %v", a, err)
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "component", "test")
	logger.Info("hello")

	if !strings.Contains(buf.String(), "component=test") {
		t.Errorf("expected component key in output, got %q", buf.String())
	}
}
