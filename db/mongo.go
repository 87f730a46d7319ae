package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"musicstream/config"
	"musicstream/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names used across the service.
const (
	UsersCollection     = "users"
	TracksCollection    = "tracks"
	PlaylistsCollection = "playlists"
)

var (
	// ErrConnectionExhausted is returned when every connection candidate failed.
	// Callers are expected to keep running in degraded mode, not crash.
	ErrConnectionExhausted = errors.New("all mongodb connection candidates failed")

	// ErrNotConnected is returned for operations attempted without an active handle.
	ErrNotConnected = errors.New("mongodb not connected")
)

// probeTimeout bounds liveness probes issued by HealthSnapshot.
const probeTimeout = 5 * time.Second

// Candidate describes one connection endpoint to try during acquisition.
type Candidate struct {
	Label     string
	URI       string
	Timeout   time.Duration // applied to connect, server selection and socket
	StableAPI bool          // pin the server Stable API version (Atlas)
}

// CandidatesFromConfig builds the ordered candidate list: the remote
// endpoint first with the longer timeout tier, then the local fallback.
func CandidatesFromConfig(cfg *config.Config) []Candidate {
	var candidates []Candidate
	if cfg.MongoURL != "" {
		candidates = append(candidates, Candidate{
			Label:     "atlas",
			URI:       cfg.MongoURL,
			Timeout:   cfg.MongoTimeout,
			StableAPI: true,
		})
	}
	if cfg.MongoLocalURL != "" {
		candidates = append(candidates, Candidate{
			Label:   "local",
			URI:     cfg.MongoLocalURL,
			Timeout: cfg.FallbackTimeout,
		})
	}
	return candidates
}

// Status classifies the store connection state in a health snapshot.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusTimeout      Status = "timeout"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// HealthSnapshot is the queryable connection/collection state, shaped for
// direct serialization by the HTTP layer.
type HealthSnapshot struct {
	Status         Status           `json:"status"`
	Detail         string           `json:"detail,omitempty"`
	Endpoint       string           `json:"endpoint,omitempty"`
	Version        string           `json:"version,omitempty"`
	Collections    map[string]int64 `json:"collections,omitempty"`
	MissingIndexes []string         `json:"missingIndexes,omitempty"`
}

// Manager owns the process-wide MongoDB handle. All access goes through
// Acquire/Collection/HealthSnapshot/Release; the handle reference is only
// swapped during Acquire. There is no background retry loop: when the
// active handle goes stale, the next caller re-acquires.
type Manager struct {
	mu             sync.RWMutex
	client         *mongo.Client
	database       *mongo.Database
	label          string
	dbName         string
	missingIndexes []string
}

// NewManager creates a Manager for the named logical database.
func NewManager(dbName string) *Manager {
	return &Manager{dbName: dbName}
}

// Acquire tries each candidate in order: connect with the candidate's
// bounded timeouts, then ping. The first candidate that does both becomes
// the active handle; every other opened connection is released. Returns the
// winning candidate's label, or ErrConnectionExhausted when none succeeds.
func (m *Manager) Acquire(ctx context.Context, candidates []Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", ErrConnectionExhausted
	}

	for _, cand := range candidates {
		client, err := m.connect(ctx, cand)
		if err != nil {
			logger.Warn("mongodb candidate failed",
				logger.String("candidate", cand.Label),
				logger.Duration("timeout", cand.Timeout),
				logger.ErrorField(err))
			continue
		}

		m.mu.Lock()
		old := m.client
		m.client = client
		m.database = client.Database(m.dbName)
		m.label = cand.Label
		m.mu.Unlock()

		// Release the previous handle on re-acquisition.
		if old != nil {
			releaseCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			if err := old.Disconnect(releaseCtx); err != nil {
				logger.Warn("failed to release stale mongodb handle", logger.ErrorField(err))
			}
			cancel()
		}

		logger.Info("mongodb connected",
			logger.String("candidate", cand.Label),
			logger.String("database", m.dbName))
		return cand.Label, nil
	}

	return "", ErrConnectionExhausted
}

// connect opens and pings a single candidate.
func (m *Manager) connect(ctx context.Context, cand Candidate) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cand.URI).
		SetConnectTimeout(cand.Timeout).
		SetServerSelectionTimeout(cand.Timeout).
		SetSocketTimeout(cand.Timeout).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)
	if cand.StableAPI {
		opts = opts.SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	}

	connectCtx, cancel := context.WithTimeout(ctx, cand.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cand.Label, err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, cand.Timeout)
	defer cancelPing()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, cancelDisc := context.WithTimeout(context.Background(), probeTimeout)
		if discErr := client.Disconnect(disconnectCtx); discErr != nil {
			logger.Warn("failed to release failed candidate", logger.ErrorField(discErr))
		}
		cancelDisc()
		return nil, fmt.Errorf("ping %s: %w", cand.Label, err)
	}

	return client, nil
}

// Connected reports whether an active handle exists. It does not probe the
// server; use HealthSnapshot for a live check.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database != nil
}

// Collection returns a handle to the named collection, or ErrNotConnected
// when the service is running in degraded mode.
func (m *Manager) Collection(name string) (*mongo.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.database == nil {
		return nil, ErrNotConnected
	}
	return m.database.Collection(name), nil
}

// Database returns the active database handle, or nil in degraded mode.
func (m *Manager) Database() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database
}

// SetMissingIndexes records index names that could not be established, for
// reporting through HealthSnapshot.
func (m *Manager) SetMissingIndexes(names []string) {
	m.mu.Lock()
	m.missingIndexes = names
	m.mu.Unlock()
}

// Release closes the active handle. Operations issued afterwards fail with
// ErrNotConnected until a new Acquire succeeds.
func (m *Manager) Release(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.database = nil
	m.label = ""
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

// HealthSnapshot issues a fresh bounded probe against the active handle and
// reports the result. It never panics and never propagates an error: every
// failure is folded into the snapshot status.
func (m *Manager) HealthSnapshot(ctx context.Context) HealthSnapshot {
	m.mu.RLock()
	client := m.client
	database := m.database
	label := m.label
	missing := append([]string(nil), m.missingIndexes...)
	m.mu.RUnlock()

	if client == nil || database == nil {
		return HealthSnapshot{Status: StatusDisconnected}
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := client.Ping(probeCtx, readpref.Primary()); err != nil {
		snap := HealthSnapshot{Endpoint: label, Detail: err.Error()}
		if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
			snap.Status = StatusTimeout
		} else {
			snap.Status = StatusError
		}
		return snap
	}

	snap := HealthSnapshot{
		Status:         StatusConnected,
		Endpoint:       label,
		Collections:    make(map[string]int64),
		MissingIndexes: missing,
	}

	var buildInfo struct {
		Version string `bson:"version"`
	}
	if err := database.RunCommand(probeCtx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&buildInfo); err == nil {
		snap.Version = buildInfo.Version
	}

	for _, name := range []string{UsersCollection, TracksCollection, PlaylistsCollection} {
		count, err := database.Collection(name).CountDocuments(probeCtx, bson.D{})
		if err != nil {
			// Counts are informational; a failed count does not flip the status.
			logger.Warn("failed to count collection",
				logger.String("collection", name),
				logger.ErrorField(err))
			continue
		}
		snap.Collections[name] = count
	}

	return snap
}
