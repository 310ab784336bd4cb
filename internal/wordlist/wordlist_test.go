package wordlist

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	words, err := Parse([]byte(`{"words": ["the", " and ", "", "the", "I"]}`), ".json")
	require.NoError(t, err)
	require.Equal(t, []string{"the", "and", "I"}, words)
}

func TestParseYAML(t *testing.T) {
	words, err := Parse([]byte("words:\n  - said\n  - was\n  - said\n"), ".yaml")
	require.NoError(t, err)
	require.Equal(t, []string{"said", "was"}, words)
}

func TestParseEmptyList(t *testing.T) {
	_, err := Parse([]byte(`{"words": ["  ", ""]}`), ".json")
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte(`{}`), ".json")
	require.ErrorIs(t, err, ErrEmpty)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"words": [`), ".json")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmpty)
}

func TestLoadOrDefault_MissingFileUsesDefault(t *testing.T) {
	words, fallback, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.True(t, fallback)
	require.Equal(t, Default, words)
}

func TestLoadOrDefault_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"words": ["go", "see"]}`), 0o644))

	words, fallback, err := LoadOrDefault(path)
	require.NoError(t, err)
	require.False(t, fallback)
	require.Equal(t, []string{"go", "see"}, words)
}

func TestShuffleKeepsWords(t *testing.T) {
	in := []string{"a", "b", "c", "d", "e", "f"}
	orig := append([]string(nil), in...)

	out, err := Shuffle(in)
	require.NoError(t, err)
	require.Equal(t, orig, in, "input must not be reordered")

	sorted := append([]string(nil), out...)
	sort.Strings(sorted)
	require.Equal(t, orig, sorted)
}

func TestShuffleEmpty(t *testing.T) {
	out, err := Shuffle(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"words": ["one"]}`), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []string, 4)
	require.NoError(t, Watch(ctx, path, func(words []string) { got <- words }))

	require.NoError(t, os.WriteFile(path, []byte(`{"words": ["one", "two"]}`), 0o644))

	select {
	case words := <-got:
		require.Equal(t, []string{"one", "two"}, words)
	case <-time.After(5 * time.Second):
		t.Fatal("word list was not reloaded")
	}
}
