package codename

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu     sync.Mutex
	taken  map[string]string
	checks int
	err    error
}

func newFakeRegistry(taken ...string) *fakeRegistry {
	r := &fakeRegistry{taken: map[string]string{}}
	for _, name := range taken {
		r.taken[Fold(name)] = "someone-else"
	}
	return r
}

func (r *fakeRegistry) IsAvailable(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks++
	if r.err != nil {
		return false, r.err
	}
	_, taken := r.taken[Fold(name)]
	return !taken, nil
}

func (r *fakeRegistry) Reserve(_ context.Context, name, owner string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, taken := r.taken[Fold(name)]; taken {
		return holder == owner, nil
	}
	r.taken[Fold(name)] = owner
	return true, nil
}

func fixed(names ...string) GenerateFunc {
	i := 0
	return func(context.Context) (string, error) {
		name := names[i%len(names)]
		i++
		return name, nil
	}
}

func TestFoldIsCaseAndSpaceInsensitive(t *testing.T) {
	assert.Equal(t, Fold("Frosty Mittens"), Fold("  frosty   MITTENS "))
	assert.True(t, Equal("Jolly Boots", "jolly boots"))
	assert.False(t, Equal("Jolly Boots", "Jolly Boot"))
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "Jolly Boots", want: "Jolly Boots"},
		{name: "quoted", raw: "\"Velvet Fox\"", want: "Velvet Fox"},
		{name: "labelled", raw: "Codename: Tinsel Ghost.", want: "Tinsel Ghost"},
		{name: "multi line keeps first", raw: "Silent Comet\nBecause you are quiet", want: "Silent Comet"},
		{name: "empty", raw: "   ", want: ""},
		{name: "too long", raw: strings.Repeat("x", MaxLength+1), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.raw))
		})
	}
}

func TestOfflineGeneratesTwoWords(t *testing.T) {
	o := NewOffline([]string{"Jolly"}, []string{"Boots"})
	assert.Equal(t, "Jolly Boots", o.Generate())

	d := NewOffline(nil, nil)
	assert.Len(t, strings.Fields(d.Generate()), 2)
}

func TestPickReturnsFirstUniqueCandidate(t *testing.T) {
	reg := newFakeRegistry()
	p := NewPicker(reg, nil, 0)

	out, err := p.Pick(context.Background(), fixed("Jolly Boots"))
	require.NoError(t, err)
	assert.Equal(t, "Jolly Boots", out.Codename)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Suffixed)
	assert.False(t, out.UsedFallback)
}

func TestPickRetriesOnCollision(t *testing.T) {
	reg := newFakeRegistry("Frosty Mittens")
	p := NewPicker(reg, nil, 0)

	out, err := p.Pick(context.Background(), fixed("frosty mittens", "Crimson Sleigh"))
	require.NoError(t, err)
	assert.Equal(t, "Crimson Sleigh", out.Codename)
	assert.Equal(t, 1, out.Collisions)
	assert.Equal(t, 2, out.Attempts)
}

func TestPickSuffixesAfterMaxCollisions(t *testing.T) {
	reg := newFakeRegistry("Frosty Mittens")
	p := NewPicker(reg, nil, 0)

	out, err := p.Pick(context.Background(), fixed("Frosty Mittens"))
	require.NoError(t, err)
	assert.True(t, out.Suffixed)
	assert.Equal(t, DefaultMaxAttempts, out.Collisions)
	assert.Equal(t, DefaultMaxAttempts, reg.checks)

	m := regexp.MustCompile(`^Frosty Mittens-(\d+)$`).FindStringSubmatch(out.Codename)
	require.Len(t, m, 2, "codename %q", out.Codename)
	n, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 0)
	assert.LessOrEqual(t, n, 998)

	ok, err := reg.Reserve(context.Background(), out.Codename, "session-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPickFallsBackToOfflineWhenGeneratorFails(t *testing.T) {
	reg := newFakeRegistry()
	p := NewPicker(reg, NewOffline([]string{"Sly"}, []string{"Magpie"}), 0)

	calls := 0
	out, err := p.Pick(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("upstream down")
	})
	require.NoError(t, err)
	assert.Equal(t, "Sly Magpie", out.Codename)
	assert.True(t, out.UsedFallback)
	assert.Equal(t, 1, calls)
}

func TestPickOfflineFollowsSameRetryPolicy(t *testing.T) {
	reg := newFakeRegistry("Sly Magpie")
	p := NewPicker(reg, NewOffline([]string{"Sly"}, []string{"Magpie"}), 3)

	out, err := p.Pick(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, out.Suffixed)
	assert.Equal(t, 3, out.Collisions)
	assert.True(t, strings.HasPrefix(out.Codename, "Sly Magpie-"))
}

func TestPickPropagatesRegistryErrors(t *testing.T) {
	reg := newFakeRegistry()
	reg.err = errors.New("store unreachable")
	p := NewPicker(reg, nil, 0)

	_, err := p.Pick(context.Background(), fixed("Jolly Boots"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}
