package anthropic

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

type fakeTransport struct {
	respStatus int
	respBody   []byte
	body       []byte
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.body = b
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func TestCompleteWithoutKey(t *testing.T) {
	t.Parallel()

	if _, err := New("").Complete(context.Background(), "hello", 0); !errors.Is(err, ErrClientNotInitialised) {
		t.Fatalf("expected ErrClientNotInitialised, got %v", err)
	}
}

func TestCompleteJoinsTextBlocks(t *testing.T) {
	t.Parallel()

	rt := &fakeTransport{
		respStatus: 200,
		respBody: []byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-7-sonnet-latest",
			"content":[{"type":"text","text":"Keep "},{"type":"text","text":"going. "}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`),
	}
	client := New("test-key", option.WithHTTPClient(&http.Client{Transport: rt}), option.WithMaxRetries(0))

	reply, err := client.Complete(context.Background(), "motivate: study", 0.7)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Keep going." {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(string(rt.body), "motivate: study") {
		t.Fatalf("request body does not carry prompt: %s", rt.body)
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	t.Parallel()

	rt := &fakeTransport{respStatus: 200, respBody: []byte(`{"content":[],"role":"assistant"}`)}
	client := New("test-key", option.WithHTTPClient(&http.Client{Transport: rt}), option.WithMaxRetries(0))

	if _, err := client.Complete(context.Background(), "hello", 0); err == nil {
		t.Fatalf("expected error for empty content")
	}
}
