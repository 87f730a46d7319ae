package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"musicstream/logger"
	"musicstream/model"
)

// CreatePlaylist creates an empty playlist owned by userID.
func (s *Service) CreatePlaylist(ctx context.Context, userID, name, description string) (*model.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: playlist name is required", ErrValidation)
	}

	playlist := &model.Playlist{
		Name:        name,
		Description: description,
		UserID:      userID,
		MusicIDs:    []string{},
		CreatedAt:   time.Now().UTC(),
	}

	id, err := s.playlists.CreatePlaylist(ctx, playlist)
	if err != nil {
		return nil, err
	}
	playlist.ID = id
	return playlist, nil
}

// GetPlaylist resolves a playlist for its owner. Reads are owner-gated the
// same way mutations are.
func (s *Service) GetPlaylist(ctx context.Context, callerID, playlistID string) (*model.Playlist, error) {
	return s.ownedPlaylist(ctx, callerID, playlistID)
}

// ListPlaylists returns the caller's playlists.
func (s *Service) ListPlaylists(ctx context.Context, userID string) ([]*model.Playlist, error) {
	return s.playlists.GetPlaylistsByUserID(ctx, userID)
}

// UpdatePlaylist sets name and/or description on an owned playlist and
// returns the updated document.
func (s *Service) UpdatePlaylist(ctx context.Context, callerID, playlistID string, name, description *string) (*model.Playlist, error) {
	if _, err := s.ownedPlaylist(ctx, callerID, playlistID); err != nil {
		return nil, err
	}

	if name != nil && strings.TrimSpace(*name) == "" {
		return nil, fmt.Errorf("%w: playlist name cannot be empty", ErrValidation)
	}

	found, err := s.playlists.UpdatePlaylistFields(ctx, playlistID, name, description)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	updated, err := s.playlists.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// DeletePlaylist removes an owned playlist immediately; there is no soft
// delete.
func (s *Service) DeletePlaylist(ctx context.Context, callerID, playlistID string) error {
	if _, err := s.ownedPlaylist(ctx, callerID, playlistID); err != nil {
		return err
	}

	found, err := s.playlists.DeletePlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	logger.Info("playlist deleted",
		logger.String("playlistId", playlistID),
		logger.String("deletedBy", callerID))
	return nil
}

// AddToPlaylist appends a track to an owned playlist. Re-adding a present
// id is a successful no-op; the guarded update keeps the sequence free of
// duplicates under concurrent adds.
func (s *Service) AddToPlaylist(ctx context.Context, callerID, playlistID, trackID string) (*model.Playlist, error) {
	if _, err := s.ownedPlaylist(ctx, callerID, playlistID); err != nil {
		return nil, err
	}

	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, ErrTrackNotFound
	}

	if _, err := s.playlists.AddTrack(ctx, playlistID, trackID); err != nil {
		return nil, err
	}

	return s.freshPlaylist(ctx, playlistID)
}

// RemoveFromPlaylist removes a track id from an owned playlist. Removing an
// absent id is a successful no-op.
func (s *Service) RemoveFromPlaylist(ctx context.Context, callerID, playlistID, trackID string) (*model.Playlist, error) {
	if _, err := s.ownedPlaylist(ctx, callerID, playlistID); err != nil {
		return nil, err
	}

	if _, err := s.playlists.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return nil, err
	}

	return s.freshPlaylist(ctx, playlistID)
}

// ownedPlaylist enforces the fixed check order: existence first, then
// ownership.
func (s *Service) ownedPlaylist(ctx context.Context, callerID, playlistID string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, ErrNotFound
	}
	if playlist.UserID != callerID {
		return nil, ErrForbidden
	}
	return playlist, nil
}

func (s *Service) freshPlaylist(ctx context.Context, playlistID string) (*model.Playlist, error) {
	playlist, err := s.playlists.GetPlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, ErrNotFound
	}
	return playlist, nil
}
