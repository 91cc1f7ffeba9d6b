package testutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomSwitch(t *testing.T) {
	choose := RandomSwitch(1, 3)
	rndm := rand.New(rand.NewSource(7))

	counts := make([]int, 2)
	for range 4000 {
		counts[choose(rndm)]++
	}
	require.InDelta(t, 1000, counts[0], 150)
	require.InDelta(t, 3000, counts[1], 150)

	require.Panics(t, func() { RandomSwitch() })
	require.Panics(t, func() { RandomSwitch(1, 0) })
}
