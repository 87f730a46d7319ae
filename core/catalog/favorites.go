package catalog

import (
	"context"

	"musicstream/model"
)

// ToggleResult reports which way a favorite toggle went.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)

// ToggleFavorite flips trackID's membership in the account's favorite set.
// The membership test and the mutation are one conditional update per
// direction: first a $pull guarded on membership, then a guarded $addToSet
// when the pull matched nothing. Concurrent toggles of the same pair can
// interleave between the two calls; the stored set stays consistent and the
// last writer wins on the reported direction.
func (s *Service) ToggleFavorite(ctx context.Context, userID, trackID string) (ToggleResult, error) {
	track, err := s.tracks.GetTrackByID(ctx, trackID)
	if err != nil {
		return "", err
	}
	if track == nil {
		return "", ErrTrackNotFound
	}

	removed, err := s.users.RemoveFavorite(ctx, userID, trackID)
	if err != nil {
		return "", err
	}
	if removed {
		return ToggleRemoved, nil
	}

	added, err := s.users.AddFavorite(ctx, userID, trackID)
	if err != nil {
		return "", err
	}
	if added {
		return ToggleAdded, nil
	}

	// Neither update matched: either the account does not exist, or a
	// concurrent toggle added the id between our two calls. In the latter
	// case the membership now holds, which is this toggle's added outcome.
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrNotFound
	}
	return ToggleAdded, nil
}

// ListFavorites returns the account's favorite tracks. Favorite ids whose
// track has since been deleted are filtered out here rather than cascaded
// at delete time.
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]*model.Track, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if len(user.FavoriteIDs) == 0 {
		return []*model.Track{}, nil
	}
	return s.tracks.GetTracksByIDs(ctx, user.FavoriteIDs)
}
