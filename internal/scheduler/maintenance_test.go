package scheduler

import (
	"testing"

	"github.com/aristath/copydash/internal/database"
	testutil "github.com/aristath/copydash/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDatabaseMaintenanceJob_Name(t *testing.T) {
	job := NewDatabaseMaintenanceJob(zerolog.Nop())
	assert.Equal(t, "database_maintenance", job.Name())
}

func TestDatabaseMaintenanceJob_Run_NoDatabases(t *testing.T) {
	job := NewDatabaseMaintenanceJob(zerolog.New(nil).Level(zerolog.Disabled), nil, nil)
	assert.NoError(t, job.Run())
}

func TestDatabaseMaintenanceJob_Run(t *testing.T) {
	portals, cleanupPortals := testutil.NewTestDB(t, "portals")
	defer cleanupPortals()
	sessions, cleanupSessions := testutil.NewTestDB(t, "sessions")
	defer cleanupSessions()

	job := NewDatabaseMaintenanceJob(zerolog.New(nil).Level(zerolog.Disabled), []*database.DB{portals, sessions}...)
	assert.NoError(t, job.Run())
}
