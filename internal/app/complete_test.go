package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/registry"
)

type hangingProvider struct{ completion.ProviderBase }

func (hangingProvider) Title() string { return "Hang" }

func (hangingProvider) PopulateAsync(context.Context, *completion.Context, func(completion.ListModel, error)) {
}

type brokenProvider struct{ completion.ProviderBase }

func (brokenProvider) Title() string { return "Broken" }

func (brokenProvider) PopulateAsync(_ context.Context, _ *completion.Context, done func(completion.ListModel, error)) {
	done(nil, errors.New("boom"))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func labels(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Label
	}
	return out
}

func TestCompleteAtOffset(t *testing.T) {
	const content = "foobar foobaz\nfoo"
	path := writeFile(t, content)
	a := newApp(t, nil)

	got, err := a.Complete(context.Background(), Request{Path: path, Offset: len(content)})
	require.NoError(t, err)

	assert.Equal(t, "foo", got.Word)
	assert.Equal(t, len(content)-3, got.Begin)
	assert.Equal(t, len(content), got.End)
	assert.False(t, got.TimedOut)
	assert.Empty(t, got.Failures)
	assert.ElementsMatch(t, []string{"foobar", "foobaz"}, labels(got.Results))
	for _, r := range got.Results {
		assert.Equal(t, "Words", r.Provider)
		assert.Equal(t, completion.KindText.String(), r.Kind)
	}
}

func TestCompleteAtLineColumn(t *testing.T) {
	path := writeFile(t, "alpha alphabet\nal = 1\n")
	a := newApp(t, nil)

	got, err := a.Complete(context.Background(), Request{Path: path, Line: 2, Column: 3})
	require.NoError(t, err)
	assert.Equal(t, "al", got.Word)
	assert.ElementsMatch(t, []string{"alpha", "alphabet"}, labels(got.Results))
}

func TestCompleteBadPosition(t *testing.T) {
	path := writeFile(t, "one\ntwo")
	a := newApp(t, nil)

	tests := []struct {
		name string
		req  Request
	}{
		{"offset past end", Request{Offset: 99}},
		{"negative offset", Request{Offset: -1}},
		{"line past end", Request{Line: 5, Column: 1}},
		{"column zero", Request{Line: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Path = path
			_, err := a.Complete(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrNoPosition)
		})
	}
}

func TestCompleteReportsFailures(t *testing.T) {
	path := writeFile(t, "foobar\nfoo")
	a := newApp(t, nil)
	a.Providers().MustRegister(registry.Registration{Name: "broken", Provider: brokenProvider{}})

	got, err := a.Complete(context.Background(), Request{Path: path, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"foobar"}, labels(got.Results))
	require.Contains(t, got.Failures, "Broken")
	assert.EqualError(t, got.Failures["Broken"], "boom")
}

func TestCompleteTimesOutWithPartialResults(t *testing.T) {
	path := writeFile(t, "foobar\nfoo")
	a := newApp(t, nil)
	a.Providers().MustRegister(registry.Registration{Name: "hang", Provider: hangingProvider{}})

	got, err := a.Complete(context.Background(), Request{Path: path, Offset: 10, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, got.TimedOut)
	assert.Equal(t, []string{"foobar"}, labels(got.Results))
}

func TestCompleteCancelled(t *testing.T) {
	path := writeFile(t, "foobar\nfoo")
	a := newApp(t, nil)
	a.Providers().MustRegister(registry.Registration{Name: "hang", Provider: hangingProvider{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Complete(ctx, Request{Path: path, Offset: 10})
	assert.ErrorIs(t, err, context.Canceled)
}
