// Package testing holds helpers shared by the package tests: failing writers, a canned
// [http.RoundTripper] and file assertions.
package testing

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

var (
	errWriteFailed = errors.New("write failed")
	errWriteLimit  = errors.New("write limit exceeded")
)

// FWriter fails every write.
type FWriter struct{}

func (*FWriter) Write([]byte) (int, error) { return 0, errWriteFailed }

// LimitedWriter forwards the first n writes to its target and fails the rest.
type LimitedWriter struct {
	remaining int
	target    io.Writer
}

func NewLimitedWriter(n int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{remaining: n, target: target}
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, errWriteLimit
	}
	l.remaining--
	return l.target.Write(p)
}

// MockRoundTripper answers every request with the same response or error.
// The most recent request is kept in Request.
type MockRoundTripper struct {
	Request *http.Request

	resp *http.Response
	err  error
}

func NewMockRoundTripper(resp *http.Response, err error) *MockRoundTripper {
	return &MockRoundTripper{resp: resp, err: err}
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.Request = req
	return m.resp, m.err
}

// NewResponse builds a JSON [http.Response] with status and body.
func NewResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file %s: %v", path, err)
	}
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file %s should not exist (stat error: %v)", path, err)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(b)
}
