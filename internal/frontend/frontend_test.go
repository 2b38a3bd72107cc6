package frontend

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/typeinfo/internal/clangast"
	"github.com/phobologic/typeinfo/internal/discover"
)

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"clang", "treesitter"}, Names())
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()

	_, err := New("gcc", Options{})
	require.ErrorIs(t, err, ErrUnknownFrontend)
	assert.Contains(t, err.Error(), `"gcc"`)
}

func TestNewDefault(t *testing.T) {
	t.Parallel()

	e, err := New("", Options{})
	require.NoError(t, err)
	assert.Equal(t, Default, e.Name)

	_, ok := e.For(discover.Header)
	assert.True(t, ok, "tree-sitter reads headers")
	fe, ok := e.For(discover.ASTDump)
	assert.True(t, ok)
	assert.IsType(t, &clangast.Dump{}, fe)
}

func TestClangEngine(t *testing.T) {
	t.Parallel()

	e, err := New("clang", Options{Clang: "clang++-18", ClangArgs: []string{"-std=c++20"}, SkipIncluded: true})
	require.NoError(t, err)

	_, ok := e.For(discover.Header)
	assert.False(t, ok, "headers are not compiled on their own")

	fe, ok := e.For(discover.Source)
	require.True(t, ok)
	r, isRunner := fe.(*clangast.Runner)
	require.True(t, isRunner)
	assert.Equal(t, "clang++-18", r.Binary)
	assert.Equal(t, []string{"-std=c++20"}, r.Args)
	assert.True(t, r.SkipIncluded)

	dump, _ := e.For(discover.ASTDump)
	assert.True(t, dump.(*clangast.Dump).SkipIncluded)
}

func TestTreeSitterConcurrent(t *testing.T) {
	t.Parallel()

	ts := NewTreeSitter()
	src := []byte("struct P { int x; virtual void f(); };\n")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	counts := make([]int, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tu, err := ts.Analyze(context.Background(), "p.h", src)
			errs[i] = err
			if err == nil {
				counts[i] = len(tu.Classes())
			}
		}()
	}
	wg.Wait()

	for i := range 8 {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, counts[i])
	}
}
