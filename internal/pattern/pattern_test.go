package pattern

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relalg/internal/ir"
)

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)

	a, err := c.Compile("a+")
	require.NoError(t, err)
	_, err = c.Compile("b+")
	require.NoError(t, err)

	again, err := c.Compile("a+")
	require.NoError(t, err)
	assert.Same(t, a, again)

	// "b+" is now least recently used.
	_, err = c.Compile("c+")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Cached("a+"))
	assert.False(t, c.Cached("b+"))
	assert.True(t, c.Cached("c+"))
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(0)

	re, err := c.Compile("^x")
	require.NoError(t, err)
	assert.True(t, re.MatchString("xyz"))
	assert.Equal(t, 0, c.Len())
}

func TestCacheInvalidPattern(t *testing.T) {
	c := NewCache(4)

	_, err := c.Compile("a(")
	require.Error(t, err)
	assert.True(t, ir.IsInvalidValue(err))
	assert.Contains(t, err.Error(), "invalid pattern")
	assert.Equal(t, 0, c.Len())
}

func TestMatchIsUnanchoredSearch(t *testing.T) {
	c := NewCache(DefaultCacheSize)

	testCases := []struct {
		pattern string
		value   string
		want    bool
	}{
		{"nn", "Ann", true},
		{"^A", "Ann", true},
		{"^n", "Ann", false},
		{"b$", "Bob", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern+"/"+tc.value, func(t *testing.T) {
			got, err := c.Match(tc.pattern, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCacheConcurrentUse(t *testing.T) {
	c := NewCache(3)
	patterns := []string{"a", "b", "c", "d", "e"}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				p := patterns[(i+j)%len(patterns)]
				ok, err := c.Match(p, p)
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 3)
}
