package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/trae-mem/internal/memory"
)

var sample = []Entry{
	{TS: 1, Kind: "user", Content: "我要实现预加载策略"},
	{TS: 2, Kind: "tool", ToolName: "Grep", Content: "搜索 preload"},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStrategy struct {
	out   string
	err   error
	calls int
	delay time.Duration
}

func (s *stubStrategy) Name() string { return "stub" }

func (s *stubStrategy) Summarize(ctx context.Context, _ []Entry, _ int) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.out, s.err
}

// ─── Summarizer fallback ────────────────────────────────────────────────────

func TestSummarizer_DefaultIsHeuristic(t *testing.T) {
	s := New(Config{}, quietLogger())
	assert.Equal(t, "heuristic", s.Strategy())

	want, _ := Heuristic{}.Summarize(context.Background(), sample, 900)
	assert.Equal(t, want, s.Summarize(context.Background(), sample, 900))
}

func TestSummarizer_ProviderSuccessIsClipped(t *testing.T) {
	stub := &stubStrategy{out: strings.Repeat("字", 50)}
	s := NewWithStrategy(stub, time.Second, quietLogger())

	got := s.Summarize(context.Background(), sample, 10)
	assert.Equal(t, 10, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSummarizer_FallsBackOnError(t *testing.T) {
	stub := &stubStrategy{err: errors.New("connection refused")}
	s := NewWithStrategy(stub, time.Second, quietLogger())

	got := s.Summarize(context.Background(), sample, 900)
	want, _ := Heuristic{}.Summarize(context.Background(), sample, 900)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, stub.calls)
}

func TestSummarizer_FallsBackOnBlankOutput(t *testing.T) {
	s := NewWithStrategy(&stubStrategy{out: "  \n "}, time.Second, quietLogger())
	assert.Contains(t, s.Summarize(context.Background(), sample, 900), "我要实现预加载策略")
}

func TestSummarizer_FallsBackOnTimeout(t *testing.T) {
	stub := &stubStrategy{out: "late", delay: time.Second}
	s := NewWithStrategy(stub, 20*time.Millisecond, quietLogger())

	got := s.Summarize(context.Background(), sample, 900)
	assert.NotEqual(t, "late", got)
	assert.Contains(t, got, "Grep: 搜索 preload")
}

func TestSummarizer_EmptyInputSkipsProvider(t *testing.T) {
	stub := &stubStrategy{out: "should not be used"}
	s := NewWithStrategy(stub, time.Second, quietLogger())

	assert.Equal(t, "", s.Summarize(context.Background(), nil, 900))
	assert.Equal(t, "", s.Summarize(context.Background(), []Entry{{Kind: "user", Content: "<private>x</private>"}}, 900))
	assert.Zero(t, stub.calls)
}

func TestSummarizer_MissingCredentialFallsBack(t *testing.T) {
	for _, provider := range []string{ProviderAnthropic, ProviderOpenAI, "mystery"} {
		t.Run(provider, func(t *testing.T) {
			s := New(Config{Provider: provider}, quietLogger())
			got := s.Summarize(context.Background(), sample, 900)
			assert.Contains(t, got, "用户意图/输入")
		})
	}
}

func TestNewProviders_RequireKey(t *testing.T) {
	_, err := NewAnthropic("", "", "")
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = NewOpenAI(" ", "", "")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestFromObservations_DropsPrivate(t *testing.T) {
	tool := "Grep"
	got := FromObservations([]memory.Observation{
		{TS: 1, Kind: "user", Content: "hi"},
		{TS: 2, Kind: "note", Content: "[PRIVATE]", Private: true},
		{TS: 3, Kind: "tool", ToolName: &tool, Content: "x"},
	})
	assert.Equal(t, []Entry{
		{TS: 1, Kind: "user", Content: "hi"},
		{TS: 3, Kind: "tool", ToolName: "Grep", Content: "x"},
	}, got)
}

// ─── Provider wiring against fake endpoints ─────────────────────────────────

func TestAnthropic_Summarize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)
		assert.Equal(t, "k-test", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "m",
			"content": [{"type": "text", "text": "- 用户目标：预加载"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic("k-test", "", srv.URL, anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := a.Summarize(context.Background(), sample, 900)
	require.NoError(t, err)
	assert.Equal(t, "- 用户目标：预加载", out)

	assert.Equal(t, DefaultAnthropicModel, got["model"])
	assert.EqualValues(t, MaxTokens, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Contains(t, mustJSON(t, msgs[0]), "预加载策略")
}

func TestAnthropic_EmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	a, err := NewAnthropic("k", "m", srv.URL, anthropicoption.WithMaxRetries(0))
	require.NoError(t, err)
	_, err = a.Summarize(context.Background(), sample, 900)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAI_Summarize(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer k-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "c1", "object": "chat.completion", "created": 1, "model": "m",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  - 已完成：搜索  "}}]
		}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI("k-test", "", srv.URL+"/v1/", openaioption.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := o.Summarize(context.Background(), sample, 900)
	require.NoError(t, err)
	assert.Equal(t, "- 已完成：搜索", out)
	assert.Equal(t, DefaultOpenAIModel, got["model"])
	assert.EqualValues(t, MaxTokens, got["max_tokens"])
}

func TestSummarizer_ProviderHTTPErrorFallsBack(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	o, err := NewOpenAI("k", "m", srv.URL+"/v1/", openaioption.WithMaxRetries(0))
	require.NoError(t, err)
	s := NewWithStrategy(o, 5*time.Second, quietLogger())

	got := s.Summarize(context.Background(), sample, 900)
	assert.Contains(t, got, "用户意图/输入")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
