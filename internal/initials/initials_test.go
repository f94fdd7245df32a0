package initials

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls []rune
	fail  map[rune]bool
}

func (f *fakeGenerator) Generate(_ context.Context, letter rune) (string, error) {
	f.calls = append(f.calls, letter)
	if f.fail[letter] {
		return "", errors.New("generation refused")
	}
	return "data:image/png;base64,ZmFrZQ==", nil
}

func TestParseLetters(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"compact", "ABC", "ABC"},
		{"comma separated", "a,b,c", "ABC"},
		{"mixed and duplicated", "a,A, b", "AB"},
		{"non letters dropped", "A1,!B", "AB"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, string(ParseLetters(tt.in)))
		})
	}
}

func TestLettersFor_DeduplicatesAndSkipsZero(t *testing.T) {
	require.Equal(t, "AW", string(LettersFor([]rune{'W', 0, 'A', 'W'})))
}

func TestEnsure_GeneratesMissingAssets(t *testing.T) {
	out := t.TempDir()
	gen := &fakeGenerator{}
	c := NewCache(out, gen)

	generated, failed, err := c.Ensure(context.Background(), []rune{'A', 'B'})
	require.NoError(t, err)
	require.Equal(t, []rune{'A', 'B'}, generated)
	require.Equal(t, 0, failed)

	data, readErr := os.ReadFile(filepath.Join(out, "initials", "A.txt"))
	require.NoError(t, readErr)
	require.Equal(t, "data:image/png;base64,ZmFrZQ==", string(data))
}

func TestEnsure_SkipsCachedAssets(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(out, "initials"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "initials", "A.txt"),
		[]byte("data:image/png;base64,b2xk"), 0o644))

	gen := &fakeGenerator{}
	c := NewCache(out, gen)

	generated, failed, err := c.Ensure(context.Background(), []rune{'A', 'B'})
	require.NoError(t, err)
	require.Equal(t, []rune{'B'}, generated)
	require.Equal(t, 0, failed)
	require.Equal(t, []rune{'B'}, gen.calls)

	// Existing asset untouched.
	data, _ := os.ReadFile(filepath.Join(out, "initials", "A.txt"))
	require.Equal(t, "data:image/png;base64,b2xk", string(data))
}

func TestEnsure_FailSoftPerLetter(t *testing.T) {
	out := t.TempDir()
	gen := &fakeGenerator{fail: map[rune]bool{'A': true}}
	c := NewCache(out, gen)

	generated, failed, err := c.Ensure(context.Background(), []rune{'A', 'B'})
	require.NoError(t, err)
	require.Equal(t, []rune{'B'}, generated)
	require.Equal(t, 1, failed)

	_, statErr := os.Stat(filepath.Join(out, "initials", "A.txt"))
	require.True(t, os.IsNotExist(statErr))
}

func TestEnsure_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCache(t.TempDir(), &fakeGenerator{})
	_, _, err := c.Ensure(ctx, []rune{'A'})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIGenerator_BuildsDataURL(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": "aW1n"}},
		})
	}))
	t.Cleanup(srv.Close)

	g := NewOpenAIGenerator("sk-test").WithBaseURL(srv.URL)
	url, err := g.Generate(context.Background(), 'Q')
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,aW1n", url)
	require.Equal(t, "Bearer sk-test", gotAuth)
	require.Equal(t, "gpt-image-1", gotBody["model"])
	require.Contains(t, gotBody["prompt"], "'Q'")
	require.Equal(t, "1024x1024", gotBody["size"])
}

func TestOpenAIGenerator_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	g := NewOpenAIGenerator("sk-test").WithBaseURL(srv.URL)
	_, err := g.Generate(context.Background(), 'A')
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestOpenAIGenerator_EmptyDataRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	t.Cleanup(srv.Close)

	g := NewOpenAIGenerator("sk-test").WithBaseURL(srv.URL)
	_, err := g.Generate(context.Background(), 'A')
	require.Error(t, err)
}
