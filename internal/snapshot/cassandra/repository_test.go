package cassandra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rowlog/rowlog/internal/journal"
)

func TestBackendErrorMatchesSentinel(t *testing.T) {
	driverErr := errors.New("gocql: no hosts available in the pool")

	err := backendError("failed to insert snapshot for \"p1\"", driverErr)

	assert.ErrorIs(t, err, journal.ErrBackendUnavailable)
	assert.ErrorIs(t, err, driverErr)
	assert.Contains(t, err.Error(), "failed to insert snapshot")
}
