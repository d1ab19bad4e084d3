package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDivideAndRoundUpToMultiple(t *testing.T) {
	require.Equal(t, 16, DivideAndRoundUpToMultiple(1000, 64, 1))
	require.Equal(t, 2, DivideAndRoundUpToMultiple(1, 1, 2))
	require.Equal(t, 0, DivideAndRoundUpToMultiple(0, 64, 1))
}
