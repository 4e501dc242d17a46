package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplicaURLs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"single URL", "postgres://a/db", []string{"postgres://a/db"}},
		{"whitespace and blanks", " postgres://a/db , ,postgres://b/db,", []string{"postgres://a/db", "postgres://b/db"}},
		{"only commas", " , , ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReplicaURLs(tt.input))
		})
	}
}

func TestReplica_FallsBackToPrimary(t *testing.T) {
	primary, _, err := sqlmock.New()
	require.NoError(t, err)
	defer primary.Close()

	cm := NewConnectionManagerFromDBs(nil, primary)
	assert.Same(t, primary, cm.Replica())
	assert.Same(t, primary, cm.Primary())
	assert.Equal(t, 0, cm.ReplicaCount())
}

func TestReplica_RoundRobin(t *testing.T) {
	primary, _, _ := sqlmock.New()
	r1, _, _ := sqlmock.New()
	r2, _, _ := sqlmock.New()
	defer primary.Close()
	defer r1.Close()
	defer r2.Close()

	cm := NewConnectionManagerFromDBs(observability.NopLogger(), primary, r1, r2)

	seen := map[interface{}]int{}
	for i := 0; i < 4; i++ {
		seen[cm.Replica()]++
	}
	assert.Equal(t, 2, seen[r1])
	assert.Equal(t, 2, seen[r2])
}

func TestHealthCheck(t *testing.T) {
	primary, pmock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer primary.Close()
	replica, rmock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer replica.Close()

	cm := NewConnectionManagerFromDBs(nil, primary, replica)

	pmock.ExpectPing()
	rmock.ExpectPing()
	assert.NoError(t, cm.HealthCheck(context.Background()))

	pmock.ExpectPing()
	rmock.ExpectPing().WillReturnError(errors.New("down"))
	err = cm.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all replicas unhealthy")

	pmock.ExpectPing().WillReturnError(errors.New("down"))
	err = cm.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary unhealthy")
}

func TestRemoveUnhealthyReplicas(t *testing.T) {
	primary, _, _ := sqlmock.New()
	defer primary.Close()
	good, gmock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))
	defer good.Close()
	bad, bmock, _ := sqlmock.New(sqlmock.MonitorPingsOption(true))

	gmock.ExpectPing()
	bmock.ExpectPing().WillReturnError(errors.New("gone"))
	bmock.ExpectClose()

	cm := NewConnectionManagerFromDBs(nil, primary, good, bad)
	assert.Equal(t, 1, cm.RemoveUnhealthyReplicas(context.Background()))
	assert.Equal(t, 1, cm.ReplicaCount())
	assert.Same(t, good, cm.Replica())
}

func TestReportStats(t *testing.T) {
	primary, _, _ := sqlmock.New()
	defer primary.Close()

	cm := NewConnectionManagerFromDBs(nil, primary)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		cm.ReportStats(metrics)
		cm.ReportStats(nil)
	})
}
