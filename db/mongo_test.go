package db

import (
	"context"
	"os"
	"testing"
	"time"

	"musicstream/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// An unroutable endpoint with a short timeout keeps failure tests fast.
func badCandidate(label string) Candidate {
	return Candidate{
		Label:   label,
		URI:     "mongodb://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}
}

func TestAcquireExhaustsBadCandidates(t *testing.T) {
	mgr := NewManager("testdb")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := mgr.Acquire(ctx, []Candidate{badCandidate("primary"), badCandidate("fallback")})
	assert.ErrorIs(t, err, ErrConnectionExhausted)
	assert.False(t, mgr.Connected())
}

func TestAcquireEmptyCandidates(t *testing.T) {
	mgr := NewManager("testdb")

	_, err := mgr.Acquire(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConnectionExhausted)
}

func TestDegradedModeOperations(t *testing.T) {
	mgr := NewManager("testdb")

	_, err := mgr.Collection(UsersCollection)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, mgr.Database())
	assert.False(t, mgr.Connected())

	// Release without an active handle is a no-op.
	assert.NoError(t, mgr.Release(context.Background()))
}

func TestHealthSnapshotDisconnected(t *testing.T) {
	mgr := NewManager("testdb")

	snap := mgr.HealthSnapshot(context.Background())
	assert.Equal(t, StatusDisconnected, snap.Status)
	assert.Empty(t, snap.Endpoint)
	assert.Empty(t, snap.Collections)
}

func TestCandidatesFromConfig(t *testing.T) {
	cfg := &config.Config{
		MongoURL:        "mongodb+srv://cluster.example.net",
		MongoLocalURL:   "mongodb://localhost:27017",
		MongoTimeout:    15 * time.Second,
		FallbackTimeout: 5 * time.Second,
	}

	candidates := CandidatesFromConfig(cfg)
	require.Len(t, candidates, 2)

	assert.Equal(t, "atlas", candidates[0].Label)
	assert.True(t, candidates[0].StableAPI)
	assert.Equal(t, 15*time.Second, candidates[0].Timeout)

	assert.Equal(t, "local", candidates[1].Label)
	assert.False(t, candidates[1].StableAPI)
	assert.Equal(t, 5*time.Second, candidates[1].Timeout)
}

func TestCandidatesFromConfigSkipsEmpty(t *testing.T) {
	cfg := &config.Config{
		MongoLocalURL:   "mongodb://localhost:27017",
		FallbackTimeout: 5 * time.Second,
	}

	candidates := CandidatesFromConfig(cfg)
	require.Len(t, candidates, 1)
	assert.Equal(t, "local", candidates[0].Label)
}

// TestAcquireFallsBackToReachableCandidate needs a live server; set
// MONGO_TEST_URL to run it.
func TestAcquireFallsBackToReachableCandidate(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URL")
	if uri == "" {
		t.Skip("MONGO_TEST_URL not set")
	}

	mgr := NewManager("testdb")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	label, err := mgr.Acquire(ctx, []Candidate{
		badCandidate("primary"),
		{Label: "fallback", URI: uri, Timeout: 5 * time.Second},
	})
	require.NoError(t, err)
	assert.Equal(t, "fallback", label)
	assert.True(t, mgr.Connected())

	snap := mgr.HealthSnapshot(ctx)
	assert.Equal(t, StatusConnected, snap.Status)
	assert.Equal(t, "fallback", snap.Endpoint)

	require.NoError(t, mgr.Release(ctx))
	assert.False(t, mgr.Connected())

	snap = mgr.HealthSnapshot(ctx)
	assert.Equal(t, StatusDisconnected, snap.Status)
}
