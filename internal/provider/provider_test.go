package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	for _, s := range []string{"openai", "anthropic", "google", "ollama", "mock"} {
		b, err := ParseBackend(s)
		require.NoError(t, err)
		assert.Equal(t, Backend(s), b)
	}

	_, err := ParseBackend("gpt4-direct")
	assert.Error(t, err)
}

func TestNewMockBackend(t *testing.T) {
	p, err := New(context.Background(), Config{ID: "mock-1", Backend: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock-1", p.ID())
	assert.Equal(t, TierMedium, p.Tier())

	out, err := p.Summarize(context.Background(), "some article body", 100)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{ID: "x", Backend: "magic"})
	assert.Error(t, err)
}

func TestNewRequiresID(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "mock"})
	assert.Error(t, err)
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := &Error{Provider: "p1", Kind: KindTransport, Err: cause}

	assert.Contains(t, err.Error(), "p1")
	assert.Contains(t, err.Error(), "transport")
	assert.ErrorIs(t, err, cause)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("429 Too Many Requests"), KindRateLimited},
		{errors.New("rate limit exceeded for model"), KindRateLimited},
		{errors.New("cannot unmarshal response body"), KindInvalidResponse},
		{errors.New("dial tcp: connection refused"), KindTransport},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.err), "%v", tc.err)
	}
}

func TestStaticProvider(t *testing.T) {
	s := &Static{Name: "fake", Response: "summary: "}

	out, err := s.Summarize(context.Background(), "the article body", 100)
	require.NoError(t, err)
	assert.Equal(t, "summary: the article body", out)

	s.Fail = &Error{Kind: KindRateLimited}
	_, err = s.Summarize(context.Background(), "the article body", 100)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindRateLimited, perr.Kind)
	assert.Equal(t, "fake", perr.Provider)
}

func TestStaticProviderHonorsCancellation(t *testing.T) {
	s := &Static{Name: "fake"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := s.Summarize(ctx, "body", 100)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindTimeout, perr.Kind)
}
