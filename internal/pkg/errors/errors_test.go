package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindHelpers(t *testing.T) {
	require.True(t, IsNotReady(fmt.Errorf("chat: %w", ErrNotReady)))
	require.True(t, IsInvalid(fmt.Errorf("%w: decode chat body", ErrInvalid)))
	require.True(t, IsUpstream(fmt.Errorf("%w: embed: timeout", ErrUpstream)))
	require.False(t, IsInvalid(ErrUpstream))
	require.False(t, IsNotReady(nil))
}
