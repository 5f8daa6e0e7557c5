package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertexclique/lale/pkg/report"
)

func sampleFunctions() []report.FunctionWCET {
	wcet := uint64(53)
	wcetUs := 53.0 / 168.0
	return []report.FunctionWCET{
		{
			Name:       "sum",
			WCETCycles: &wcet,
			WCETMicros: &wcetUs,
			LoopCount:  1,
			BlockCount: 4,
			EdgeCount:  4,
		},
		{
			Name:  "broken",
			Error: "malformed_function: branch to unknown label",
		},
	}
}

func TestStore_Basic(t *testing.T) {
	s := New()
	key := Key{ContentHash: "abc123", Platform: "cortex-m4"}

	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrMiss)

	s.Put(key, sampleFunctions())
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sum", got[0].Name)
	require.NotNil(t, got[0].WCETCycles)
	assert.Equal(t, uint64(53), *got[0].WCETCycles)
	assert.Equal(t, "broken", got[1].Name)
	assert.Nil(t, got[1].WCETCycles)
}

func TestStore_KeyedByPlatform(t *testing.T) {
	s := New()
	s.Put(Key{ContentHash: "abc", Platform: "cortex-m4"}, sampleFunctions())

	_, err := s.Get(Key{ContentHash: "abc", Platform: "cortex-m0"})
	assert.ErrorIs(t, err, ErrMiss, "a different platform must not hit")
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	key := Key{ContentHash: "abc", Platform: "cortex-m4"}
	s.Put(key, sampleFunctions())

	got, err := s.Get(key)
	require.NoError(t, err)
	got[0].Name = "mutated"

	again, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "sum", again[0].Name, "mutating a result must not corrupt the cache")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New()
	key := Key{ContentHash: "abc", Platform: "rv32imac"}
	s.Put(key, sampleFunctions())

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	restored := New()
	require.NoError(t, restored.Load(&buf))
	assert.Equal(t, 1, restored.Len())

	got, err := restored.Get(key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].WCETMicros)
	assert.InDelta(t, 53.0/168.0, *got[0].WCETMicros, 1e-12)
}

func TestStore_SaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.msgpack")

	s := New()
	s.Put(Key{ContentHash: "abc", Platform: "cortex-m7"}, sampleFunctions())
	require.NoError(t, s.SaveFile(path))

	restored := New()
	require.NoError(t, restored.LoadFile(path))
	assert.Equal(t, 1, restored.Len())
}

func TestStore_LoadFileMissingIsEmpty(t *testing.T) {
	s := New()
	require.NoError(t, s.LoadFile(filepath.Join(t.TempDir(), "absent.msgpack")))
	assert.Equal(t, 0, s.Len())
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ll")
	b := filepath.Join(dir, "b.ll")
	require.NoError(t, os.WriteFile(a, []byte("define void @f() {\nentry:\n  ret void\n}\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("define void @g() {\nentry:\n  ret void\n}\n"), 0644))

	ha, err := HashFile(a)
	require.NoError(t, err)
	hb, err := HashFile(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	again, err := HashFile(a)
	require.NoError(t, err)
	assert.Equal(t, ha, again, "hashing is deterministic")

	_, err = HashFile(filepath.Join(dir, "absent.ll"))
	assert.Error(t, err)
}
