package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseOutput = `anthropic/claude-opus-4-5
{
  "id": "claude-opus-4-5-20251101",
  "providerID": "anthropic",
  "name": "Claude Opus 4.5",
  "family": "claude-opus",
  "cost": {"input": 5, "output": 25},
  "limit": {"context": 200000, "output": 64000},
  "capabilities": {
    "reasoning": true,
    "interleaved": {"field": "reasoning_content"},
    "input": {"text": true, "image": true, "pdf": true},
    "output": {"text": true}
  }
}
google/gemini-3-flash
{
  "id": "gemini-3-flash",
  "providerID": "google",
  "name": "Gemini 3 Flash",
  "cost": {"input": 0.5, "output": 3},
  "limit": {"context": 1048576, "output": 65536},
  "capabilities": {"input": {"text": true, "image": true, "pdf": true, "video": true}, "output": {"text": true}}
}
broken/model
{
  "id": "oops",
}
opencode/gpt-5-nano
{
  "id": "gpt-5-nano",
  "limit": {"context": 400000},
  "capabilities": {"reasoning": true}
}
`

func TestParse(t *testing.T) {
	models := Parse([]byte(verboseOutput))
	require.Len(t, models, 3)

	assert.Equal(t, "anthropic/claude-opus-4-5", models[0].ID)
	assert.Equal(t, "claude-opus-4-5-20251101", models[0].ModelID)
	assert.Equal(t, 200000, models[0].Limit.Context)
	assert.True(t, models[0].HasExtendedThinking())
	assert.False(t, models[0].IsFast())

	assert.Equal(t, "google/gemini-3-flash", models[1].ID)
	assert.True(t, models[1].IsFast())

	assert.Equal(t, "opencode", models[2].Provider())
	assert.Equal(t, []string{"anthropic", "google", "opencode"}, Providers(models))
}

func TestParseIgnoresNoise(t *testing.T) {
	assert.Empty(t, Parse([]byte("Loading...\nnot a model line\n")))
	assert.Empty(t, Parse(nil))
}

func TestIsFastByCost(t *testing.T) {
	assert.True(t, Model{ID: "x/y", Cost: &Cost{Input: 1, Output: 2}}.IsFast())
	assert.False(t, Model{ID: "x/y", Cost: &Cost{}}.IsFast())
	assert.False(t, Model{ID: "x/y", Cost: &Cost{Input: 3, Output: 15}}.IsFast())
	assert.True(t, Model{ID: "x/claude-haiku-4-5"}.IsFast())
}

func TestHasExtendedThinking(t *testing.T) {
	assert.False(t, Model{}.HasExtendedThinking())
	assert.False(t, Model{Capabilities: Capabilities{Interleaved: []byte(`true`)}}.HasExtendedThinking())
	assert.False(t, Model{Capabilities: Capabilities{Interleaved: []byte(`{}`)}}.HasExtendedThinking())
	assert.True(t, Model{Capabilities: Capabilities{Interleaved: []byte(`{"field":"x"}`)}}.HasExtendedThinking())
}

func TestScoreAndRecommend(t *testing.T) {
	models := Parse([]byte(verboseOutput))

	assert.Zero(t, Score(models[0], "no-such-agent", nil))

	// multimodal-looker prefers multimodal, image, pdf, and fast models.
	recs := Recommend(models, "multimodal-looker", nil, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, "google/gemini-3-flash", recs[0].Model.ID)
	assert.GreaterOrEqual(t, recs[0].Score, recs[1].Score)

	base := Score(models[2], "oracle", nil)
	boosted := Score(models[2], "oracle", []string{"opencode", "anthropic"})
	assert.Equal(t, base+10, boosted)
	assert.Equal(t, base+5, Score(models[2], "oracle", []string{"anthropic", "opencode"}))

	assert.Len(t, Recommend(models, "oracle", nil, 0), len(models))
}

func TestScoreContextDeficit(t *testing.T) {
	small := Model{ID: "x/small", Limit: Limit{Context: 64000}}
	// oracle wants 128k; half the context costs 10 points.
	assert.Equal(t, -10, Score(small, "oracle", nil))
}

func TestFilter(t *testing.T) {
	models := Parse([]byte(verboseOutput))

	out, err := Filter(models, []string{"anthropic/*"}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "anthropic/claude-opus-4-5", out[0].ID)

	out, err = Filter(models, []string{"**/*flash*", "opencode/gpt-*"}, nil)
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = Filter(models, nil, []string{"google"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	_, err = Filter(models, []string{"anthropic/[unclosed"}, nil)
	require.Error(t, err)
}

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
	calls  int
	name   string
	args   []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls++
	s.name = name
	s.args = args
	return s.stdout, s.stderr, s.err
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]*Snapshot
	ttl   time.Duration
}

func (c *memoryCache) GetCatalog(_ context.Context, key string) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memoryCache) PutCatalog(_ context.Context, key string, snapshot *Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string]*Snapshot{}
	}
	copied := *snapshot
	c.items[key] = &copied
	c.ttl = ttl
	return nil
}

func TestLoaderUsesCache(t *testing.T) {
	runner := &stubRunner{stdout: []byte(verboseOutput)}
	cache := &memoryCache{}
	loader := &Loader{Runner: runner, Cache: cache}

	first, err := loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, DefaultBinary, runner.name)
	assert.Equal(t, DefaultArgs, runner.args)
	assert.Equal(t, DefaultTTL, cache.ttl)

	second, err := loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, first.IDs(), second.IDs())

	_, err = loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)
}

func TestLoaderExplainsFailure(t *testing.T) {
	runner := &stubRunner{stderr: []byte("ProviderModelNotFoundError: foo/bar"), err: errors.New("exit status 1")}
	loader := &Loader{Runner: runner}

	_, err := loader.Load(context.Background(), false)
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), `Failed to run "opencode models --verbose".`)
	assert.Contains(t, err.Error(), "ProviderModelNotFoundError: foo/bar")
	assert.Contains(t, err.Error(), "opencode --version")
}

func TestLoaderEmptyCatalog(t *testing.T) {
	loader := &Loader{Runner: &stubRunner{stdout: []byte("nothing here\n")}}
	_, err := loader.Load(context.Background(), false)
	require.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestSnapshotHelpers(t *testing.T) {
	snapshot := NewSnapshot(Parse([]byte(verboseOutput)))
	assert.Equal(t, []string{"anthropic/claude-opus-4-5", "google/gemini-3-flash", "opencode/gpt-5-nano"}, snapshot.IDs())

	m, ok := snapshot.Find("google/gemini-3-flash")
	require.True(t, ok)
	assert.Equal(t, "Gemini 3 Flash", m.Name)

	_, ok = snapshot.Find("nope/nope")
	assert.False(t, ok)

	var empty *Snapshot
	assert.Nil(t, empty.IDs())
}
