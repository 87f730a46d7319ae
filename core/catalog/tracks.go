package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"musicstream/logger"
	"musicstream/model"
)

// UploadTrackInput carries the metadata and payloads for a new track.
type UploadTrackInput struct {
	Title    string
	Artist   string
	Genre    string
	Duration int // seconds

	Audio            io.Reader
	AudioSize        int64
	AudioContentType string

	// Cover is optional; a nil reader leaves the track without one.
	Cover            io.Reader
	CoverSize        int64
	CoverContentType string
}

// UploadTrack stores the audio payload and creates the track document. The
// audio locator and uploader are fixed at creation and never updated.
func (s *Service) UploadTrack(ctx context.Context, userID string, in UploadTrackInput) (*model.Track, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Duration < 0 {
		return nil, fmt.Errorf("%w: duration must be non-negative", ErrValidation)
	}
	if in.Audio == nil {
		return nil, fmt.Errorf("%w: audio payload is required", ErrValidation)
	}
	if !strings.HasPrefix(in.AudioContentType, "audio/") {
		return nil, fmt.Errorf("%w: payload must be an audio file", ErrValidation)
	}

	audioKey, err := s.blobs.Store(ctx, in.Audio, in.AudioSize, in.AudioContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	var coverURL string
	if in.Cover != nil {
		if !strings.HasPrefix(in.CoverContentType, "image/") {
			s.discardBlob(ctx, audioKey)
			return nil, fmt.Errorf("%w: cover must be an image file", ErrValidation)
		}
		coverURL, err = s.blobs.Store(ctx, in.Cover, in.CoverSize, in.CoverContentType)
		if err != nil {
			// A failed cover upload does not fail the track.
			logger.Warn("failed to store cover", logger.ErrorField(err))
			coverURL = ""
		}
	}

	track := &model.Track{
		Title:      in.Title,
		Artist:     in.Artist,
		Genre:      in.Genre,
		Duration:   in.Duration,
		CoverURL:   coverURL,
		AudioKey:   audioKey,
		UploadedBy: userID,
		CreatedAt:  time.Now().UTC(),
	}

	id, err := s.tracks.CreateTrack(ctx, track)
	if err != nil {
		s.discardBlob(ctx, audioKey)
		if coverURL != "" {
			s.discardBlob(ctx, coverURL)
		}
		return nil, err
	}
	track.ID = id

	if s.cache != nil {
		s.cache.SetTrack(ctx, track)
	}

	logger.Info("track uploaded",
		logger.String("trackId", id.Hex()),
		logger.String("uploadedBy", userID))
	return track, nil
}

// GetTrack resolves a track by id, consulting the cache first.
func (s *Service) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	if s.cache != nil {
		if track, ok := s.cache.GetTrack(ctx, id); ok {
			return track, nil
		}
	}

	track, err := s.tracks.GetTrackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, ErrNotFound
	}

	if s.cache != nil {
		s.cache.SetTrack(ctx, track)
	}
	return track, nil
}

// ListTracks returns the newest tracks up to limit.
func (s *Service) ListTracks(ctx context.Context, limit int64) ([]*model.Track, error) {
	return s.tracks.GetAllTracks(ctx, limit)
}

// ListUserTracks returns the tracks one account uploaded, newest first.
func (s *Service) ListUserTracks(ctx context.Context, userID string, limit int64) ([]*model.Track, error) {
	return s.tracks.GetTracksByUploader(ctx, userID, limit)
}

// SearchTracks runs a text search over title, artist and genre.
func (s *Service) SearchTracks(ctx context.Context, query string, limit int64) ([]*model.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	return s.tracks.SearchTracks(ctx, query, limit)
}

// SetTrackCover replaces a track's cover image. The cover is the only
// mutable part of a track document.
func (s *Service) SetTrackCover(ctx context.Context, callerID, trackID string, cover io.Reader, size int64, contentType string) (*model.Track, error) {
	if cover == nil {
		return nil, fmt.Errorf("%w: cover payload is required", ErrValidation)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: cover must be an image file", ErrValidation)
	}

	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, ErrNotFound
	}
	if track.UploadedBy != callerID {
		return nil, ErrForbidden
	}

	key, err := s.blobs.Store(ctx, cover, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store cover: %w", err)
	}

	found, err := s.tracks.UpdateTrackCover(ctx, trackID, key)
	if err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}
	if !found {
		s.discardBlob(ctx, key)
		return nil, ErrNotFound
	}

	if track.CoverURL != "" {
		s.discardBlob(ctx, track.CoverURL)
	}
	track.CoverURL = key
	if s.cache != nil {
		s.cache.SetTrack(ctx, track)
	}
	return track, nil
}

// DeleteTrack removes a track and its stored blob. The checks run in fixed
// order: existence, then ownership, then the mutation.
func (s *Service) DeleteTrack(ctx context.Context, callerID, trackID string) error {
	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return err
	}
	if track == nil {
		return ErrNotFound
	}
	if track.UploadedBy != callerID {
		return ErrForbidden
	}

	found, err := s.tracks.DeleteTrack(ctx, trackID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	s.discardBlob(ctx, track.AudioKey)
	if track.CoverURL != "" {
		s.discardBlob(ctx, track.CoverURL)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, trackID)
	}

	logger.Info("track deleted",
		logger.String("trackId", trackID),
		logger.String("deletedBy", callerID))
	return nil
}

// discardBlob deletes a stored object, logging rather than failing the
// surrounding operation when the delete does not go through.
func (s *Service) discardBlob(ctx context.Context, key string) {
	if key == "" || s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete blob",
			logger.String("key", key),
			logger.ErrorField(err))
	}
}
