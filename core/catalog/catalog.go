// Package catalog implements the compound catalog operations: account
// registration, favorite toggling, ownership-checked track and playlist
// mutations. The store only guarantees single-document atomicity, so every
// operation here is built from conditional single-document updates rather
// than transactions.
package catalog

import (
	"context"
	"errors"
	"io"

	"musicstream/model"
	"musicstream/repository"
)

var (
	// ErrDuplicateEmail is returned when registering an email that already
	// has an account.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound is returned when the target entity id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the target.
	ErrForbidden = errors.New("caller is not the owner")
	// ErrTrackNotFound is returned when a referenced track does not exist.
	ErrTrackNotFound = errors.New("track not found")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

// BlobStore is the object-storage capability consumed for audio and cover
// payloads. The catalog only holds the returned locator strings.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TrackCache caches track documents by id. Implementations must treat all
// operations as best-effort; a cache failure never fails the request.
type TrackCache interface {
	GetTrack(ctx context.Context, id string) (*model.Track, bool)
	SetTrack(ctx context.Context, track *model.Track)
	Invalidate(ctx context.Context, id string)
}

// Service exposes the catalog operations. It is the single call path for
// every mutation the HTTP layer performs.
type Service struct {
	users     repository.UserRepository
	tracks    repository.TrackRepository
	playlists repository.PlaylistRepository
	blobs     BlobStore
	cache     TrackCache // nil disables caching
}

// NewService wires the catalog service.
func NewService(
	users repository.UserRepository,
	tracks repository.TrackRepository,
	playlists repository.PlaylistRepository,
	blobs BlobStore,
	cache TrackCache,
) *Service {
	return &Service{
		users:     users,
		tracks:    tracks,
		playlists: playlists,
		blobs:     blobs,
		cache:     cache,
	}
}
