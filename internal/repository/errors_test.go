package repository_test

import (
	"testing"

	"github.com/cadencehq/cadence/internal/coordination"
	"github.com/cadencehq/cadence/internal/repository"
	"github.com/stretchr/testify/require"
)

// Storage adapters return the repository names while the engine checks the
// coordination names; both must be the same identity or errors.Is checks
// split across the package boundary.
func TestSentinelIdentities(t *testing.T) {
	require.ErrorIs(t, repository.ErrNotFound, coordination.ErrNotFound)
	require.ErrorIs(t, repository.ErrDuplicateTrigger, coordination.ErrDuplicateTrigger)
	require.ErrorIs(t, repository.ErrInvalidInput, coordination.ErrInvalidInput)
}
