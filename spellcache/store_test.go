package spellcache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	calls  int
	output string
	err    error
}

func (c *counter) compute(_ context.Context, input string) (string, error) {
	c.calls++
	return c.output, c.err
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetComputesOnceForNonEmptyOutput(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "spell.cache"))
	c := &counter{output: "<html>ok</html>"}

	got, err := s.Get(ctx, "안녕하세요", c.compute)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", got)
	assert.Equal(t, 1, c.calls)

	c.output = "changed"
	got, err = s.Get(ctx, "안녕하세요", c.compute)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", got)
	assert.Equal(t, 1, c.calls, "a hit must not compute")

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetDoesNotStoreEmptyOutput(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "spell.cache"))
	c := &counter{}

	for i := 0; i < 2; i++ {
		got, err := s.Get(ctx, "빈 응답", c.compute)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 2, c.calls)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetPropagatesComputeErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "spell.cache"))
	boom := errors.New("boom")
	c := &counter{output: "ignored", err: boom}

	_, err := s.Get(ctx, "text", c.compute)
	require.ErrorIs(t, err, boom)

	c.err = nil
	got, err := s.Get(ctx, "text", c.compute)
	require.NoError(t, err)
	assert.Equal(t, "ignored", got)
	assert.Equal(t, 2, c.calls)
}

func TestCacheSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "spell.cache")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Get(ctx, "exact key", (&counter{output: "stored"}).compute)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	c := &counter{output: "recomputed"}

	got, err := reopened.Get(ctx, "exact key", c.compute)
	require.NoError(t, err)
	assert.Equal(t, "stored", got)
	assert.Zero(t, c.calls)

	got, err = reopened.Get(ctx, "exact key ", c.compute)
	require.NoError(t, err)
	assert.Equal(t, "recomputed", got, "keys match exactly")
}
