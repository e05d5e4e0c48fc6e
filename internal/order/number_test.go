package order

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberGenerator_Format(t *testing.T) {
	g := NewNumberGenerator("KC")
	assert.Regexp(t, regexp.MustCompile(`^KC-[0-9A-F]{8}$`), g.Generate())
}

func TestNumberGenerator_TenThousandSequentialAreUnique(t *testing.T) {
	g := NewNumberGenerator("KC")
	persisted := make(map[string]struct{}, 10000)
	exists := func(_ context.Context, n string) (bool, error) {
		_, ok := persisted[n]
		return ok, nil
	}

	for i := 0; i < 10000; i++ {
		n, err := g.NextUnique(context.Background(), exists)
		require.NoError(t, err)
		_, dup := persisted[n]
		require.False(t, dup, "duplicate order number %s", n)
		persisted[n] = struct{}{}
	}
	assert.Len(t, persisted, 10000)
}

func TestNumberGenerator_RetriesOnCollision(t *testing.T) {
	seq := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	g := &NumberGenerator{prefix: "KC", random: func() string {
		v := seq[0]
		seq = seq[1:]
		return v
	}}

	calls := 0
	n, err := g.NextUnique(context.Background(), func(_ context.Context, n string) (bool, error) {
		calls++
		return n == "KC-AAAAAAAA", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "KC-BBBBBBBB", n)
	assert.Equal(t, 3, calls)
}

func TestNumberGenerator_ExistsErrorStops(t *testing.T) {
	g := NewNumberGenerator("KC")
	boom := errors.New("db gone")

	_, err := g.NextUnique(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestNumberGenerator_GivesUpEventually(t *testing.T) {
	g := &NumberGenerator{prefix: "KC", random: func() string { return "00000000" }}

	_, err := g.NextUnique(context.Background(), func(context.Context, string) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, errNumbersExhausted)
}
