package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"musicstream/model"
	"musicstream/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes implementing the repository interfaces.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.FavoriteIDs = append([]string(nil), u.FavoriteIDs...)
	return &c
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicateEmail
		}
	}
	id := primitive.NewObjectID()
	stored := cloneUser(user)
	stored.ID = id
	r.users[id.Hex()] = stored
	return id, nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(user), nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) AddFavorite(_ context.Context, userID, trackID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	for _, id := range user.FavoriteIDs {
		if id == trackID {
			return false, nil
		}
	}
	user.FavoriteIDs = append(user.FavoriteIDs, trackID)
	return true, nil
}

func (r *fakeUserRepo) RemoveFavorite(_ context.Context, userID, trackID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return false, nil
	}
	for i, id := range user.FavoriteIDs {
		if id == trackID {
			user.FavoriteIDs = append(user.FavoriteIDs[:i], user.FavoriteIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type fakeTrackRepo struct {
	mu     sync.Mutex
	tracks map[string]*model.Track
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[string]*model.Track)}
}

func (r *fakeTrackRepo) CreateTrack(_ context.Context, track *model.Track) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := *track
	stored.ID = id
	r.tracks[id.Hex()] = &stored
	return id, nil
}

func (r *fakeTrackRepo) GetTrackByID(_ context.Context, id string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.tracks[id]
	if !ok {
		return nil, nil
	}
	c := *track
	return &c, nil
}

func (r *fakeTrackRepo) GetAllTracks(_ context.Context, limit int64) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Track, 0, len(r.tracks))
	for _, track := range r.tracks {
		c := *track
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeTrackRepo) GetTracksByIDs(_ context.Context, ids []string) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Track, 0, len(ids))
	for _, id := range ids {
		if track, ok := r.tracks[id]; ok {
			c := *track
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) GetTracksByUploader(_ context.Context, userID string, limit int64) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Track, 0)
	for _, track := range r.tracks {
		if track.UploadedBy == userID {
			c := *track
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) SearchTracks(_ context.Context, query string, limit int64) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	out := make([]*model.Track, 0)
	for _, track := range r.tracks {
		haystack := strings.ToLower(track.Title + " " + track.Artist + " " + track.Genre)
		if strings.Contains(haystack, q) {
			c := *track
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) UpdateTrackCover(_ context.Context, id, coverURL string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.tracks[id]
	if !ok {
		return false, nil
	}
	track.CoverURL = coverURL
	return true, nil
}

func (r *fakeTrackRepo) DeleteTrack(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracks[id]; !ok {
		return false, nil
	}
	delete(r.tracks, id)
	return true, nil
}

type fakePlaylistRepo struct {
	mu        sync.Mutex
	playlists map[string]*model.Playlist
}

func newFakePlaylistRepo() *fakePlaylistRepo {
	return &fakePlaylistRepo{playlists: make(map[string]*model.Playlist)}
}

func clonePlaylist(p *model.Playlist) *model.Playlist {
	c := *p
	c.MusicIDs = append([]string(nil), p.MusicIDs...)
	return &c
}

func (r *fakePlaylistRepo) CreatePlaylist(_ context.Context, playlist *model.Playlist) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	stored := clonePlaylist(playlist)
	stored.ID = id
	r.playlists[id.Hex()] = stored
	return id, nil
}

func (r *fakePlaylistRepo) GetPlaylistByID(_ context.Context, id string) (*model.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[id]
	if !ok {
		return nil, nil
	}
	return clonePlaylist(playlist), nil
}

func (r *fakePlaylistRepo) GetPlaylistsByUserID(_ context.Context, userID string) ([]*model.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Playlist, 0)
	for _, playlist := range r.playlists {
		if playlist.UserID == userID {
			out = append(out, clonePlaylist(playlist))
		}
	}
	return out, nil
}

func (r *fakePlaylistRepo) UpdatePlaylistFields(_ context.Context, id string, name, description *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[id]
	if !ok {
		return false, nil
	}
	if name != nil {
		playlist.Name = *name
	}
	if description != nil {
		playlist.Description = *description
	}
	return true, nil
}

func (r *fakePlaylistRepo) DeletePlaylist(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[id]; !ok {
		return false, nil
	}
	delete(r.playlists, id)
	return true, nil
}

func (r *fakePlaylistRepo) AddTrack(_ context.Context, playlistID, trackID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok {
		return false, nil
	}
	for _, id := range playlist.MusicIDs {
		if id == trackID {
			return false, nil
		}
	}
	playlist.MusicIDs = append(playlist.MusicIDs, trackID)
	return true, nil
}

func (r *fakePlaylistRepo) RemoveTrack(_ context.Context, playlistID, trackID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok {
		return false, nil
	}
	for i, id := range playlist.MusicIDs {
		if id == trackID {
			playlist.MusicIDs = append(playlist.MusicIDs[:i], playlist.MusicIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	next  int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Store(_ context.Context, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	key := fmt.Sprintf("blob-%d", s.next)
	s.blobs[key] = data
	return key, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

type fixture struct {
	svc       *Service
	users     *fakeUserRepo
	tracks    *fakeTrackRepo
	playlists *fakePlaylistRepo
	blobs     *fakeBlobStore
}

func newFixture() *fixture {
	f := &fixture{
		users:     newFakeUserRepo(),
		tracks:    newFakeTrackRepo(),
		playlists: newFakePlaylistRepo(),
		blobs:     newFakeBlobStore(),
	}
	f.svc = NewService(f.users, f.tracks, f.playlists, f.blobs, nil)
	return f
}

func (f *fixture) addUser(t *testing.T, email string) string {
	t.Helper()
	user, err := f.svc.Register(context.Background(), "Test User", email, "secret123")
	require.NoError(t, err)
	return user.ID.Hex()
}

func (f *fixture) addTrack(t *testing.T, userID, title string) string {
	t.Helper()
	track, err := f.svc.UploadTrack(context.Background(), userID, UploadTrackInput{
		Title:            title,
		Artist:           "Artist",
		Genre:            "Genre",
		Duration:         180,
		Audio:            bytes.NewReader([]byte("audio-bytes")),
		AudioSize:        11,
		AudioContentType: "audio/mpeg",
	})
	require.NoError(t, err)
	return track.ID.Hex()
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)
	require.False(t, first.ID.IsZero())

	_, err = f.svc.Register(ctx, "Other Ana", "ana@example.com", "different456")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, f.users.count())
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "", "a@b.com", "secret123")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Register(ctx, "Ana", "not-an-email", "secret123")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Register(ctx, "Ana", "a@b.com", "short")
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 0, f.users.count())
}

func TestAuthenticate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "Ana", "ana@example.com", "secret123")
	require.NoError(t, err)

	user, err := f.svc.Authenticate(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = f.svc.Authenticate(ctx, "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestToggleFavoriteRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.addUser(t, "ana@example.com")
	trackID := f.addTrack(t, userID, "Song")

	result, err := f.svc.ToggleFavorite(ctx, userID, trackID)
	require.NoError(t, err)
	assert.Equal(t, ToggleAdded, result)

	favorites, err := f.svc.ListFavorites(ctx, userID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, trackID, favorites[0].ID.Hex())

	result, err = f.svc.ToggleFavorite(ctx, userID, trackID)
	require.NoError(t, err)
	assert.Equal(t, ToggleRemoved, result)

	favorites, err = f.svc.ListFavorites(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestToggleFavoriteMissingTrack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.addUser(t, "ana@example.com")

	_, err := f.svc.ToggleFavorite(ctx, userID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrTrackNotFound)

	favorites, err := f.svc.ListFavorites(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestToggleFavoriteUnknownUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addUser(t, "ana@example.com")
	trackID := f.addTrack(t, owner, "Song")

	_, err := f.svc.ToggleFavorite(ctx, primitive.NewObjectID().Hex(), trackID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFavoritesFiltersDangling(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.addUser(t, "ana@example.com")
	keepID := f.addTrack(t, userID, "Keep")
	goneID := f.addTrack(t, userID, "Gone")

	_, err := f.svc.ToggleFavorite(ctx, userID, keepID)
	require.NoError(t, err)
	_, err = f.svc.ToggleFavorite(ctx, userID, goneID)
	require.NoError(t, err)

	// Delete the track out from under the favorite set; there is no
	// cascade, the dangling id is filtered when listing.
	_, err = f.tracks.DeleteTrack(ctx, goneID)
	require.NoError(t, err)

	favorites, err := f.svc.ListFavorites(ctx, userID)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, keepID, favorites[0].ID.Hex())
}

func TestPlaylistOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	intruder := f.addUser(t, "intruder@example.com")

	playlist, err := f.svc.CreatePlaylist(ctx, owner, "Mix", "")
	require.NoError(t, err)
	playlistID := playlist.ID.Hex()

	newName := "Renamed"

	_, err = f.svc.UpdatePlaylist(ctx, intruder, playlistID, &newName, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.DeletePlaylist(ctx, intruder, playlistID)
	assert.ErrorIs(t, err, ErrForbidden)

	// A nonexistent target reports not-found before any ownership check.
	_, err = f.svc.UpdatePlaylist(ctx, intruder, primitive.NewObjectID().Hex(), &newName, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.svc.UpdatePlaylist(ctx, owner, playlistID, &newName, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, f.svc.DeletePlaylist(ctx, owner, playlistID))

	_, err = f.svc.GetPlaylist(ctx, owner, playlistID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaylistMembershipIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	trackID := f.addTrack(t, owner, "Song")

	playlist, err := f.svc.CreatePlaylist(ctx, owner, "Mix", "late night")
	require.NoError(t, err)
	playlistID := playlist.ID.Hex()

	updated, err := f.svc.AddToPlaylist(ctx, owner, playlistID, trackID)
	require.NoError(t, err)
	assert.Equal(t, []string{trackID}, updated.MusicIDs)

	// Re-adding a present id is a successful no-op.
	updated, err = f.svc.AddToPlaylist(ctx, owner, playlistID, trackID)
	require.NoError(t, err)
	assert.Len(t, updated.MusicIDs, 1)

	_, err = f.svc.AddToPlaylist(ctx, owner, playlistID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrTrackNotFound)

	// Removing an absent id succeeds and changes nothing.
	updated, err = f.svc.RemoveFromPlaylist(ctx, owner, playlistID, primitive.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Len(t, updated.MusicIDs, 1)

	updated, err = f.svc.RemoveFromPlaylist(ctx, owner, playlistID, trackID)
	require.NoError(t, err)
	assert.Empty(t, updated.MusicIDs)
}

func TestUploadTrackValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.addUser(t, "ana@example.com")

	_, err := f.svc.UploadTrack(ctx, userID, UploadTrackInput{
		Title:            "",
		Audio:            bytes.NewReader([]byte("x")),
		AudioContentType: "audio/mpeg",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UploadTrack(ctx, userID, UploadTrackInput{
		Title:            "Song",
		Duration:         -1,
		Audio:            bytes.NewReader([]byte("x")),
		AudioContentType: "audio/mpeg",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.UploadTrack(ctx, userID, UploadTrackInput{
		Title:            "Song",
		Audio:            bytes.NewReader([]byte("x")),
		AudioContentType: "text/plain",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteTrackOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	intruder := f.addUser(t, "intruder@example.com")
	trackID := f.addTrack(t, owner, "Song")

	track, err := f.svc.GetTrack(ctx, trackID)
	require.NoError(t, err)

	err = f.svc.DeleteTrack(ctx, intruder, trackID)
	assert.ErrorIs(t, err, ErrForbidden)

	err = f.svc.DeleteTrack(ctx, owner, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteTrack(ctx, owner, trackID))

	// Blob and document go together.
	exists, err := f.blobs.Exists(ctx, track.AudioKey)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.GetTrack(ctx, trackID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetTrackCover(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.addUser(t, "owner@example.com")
	intruder := f.addUser(t, "intruder@example.com")
	trackID := f.addTrack(t, owner, "Song")

	_, err := f.svc.SetTrackCover(ctx, intruder, trackID, bytes.NewReader([]byte("img")), 3, "image/png")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.SetTrackCover(ctx, owner, trackID, bytes.NewReader([]byte("img")), 3, "text/plain")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SetTrackCover(ctx, owner, primitive.NewObjectID().Hex(), bytes.NewReader([]byte("img")), 3, "image/png")
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := f.svc.SetTrackCover(ctx, owner, trackID, bytes.NewReader([]byte("img")), 3, "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, updated.CoverURL)

	exists, err := f.blobs.Exists(ctx, updated.CoverURL)
	require.NoError(t, err)
	assert.True(t, exists)

	// Replacing again discards the previous cover blob.
	old := updated.CoverURL
	updated, err = f.svc.SetTrackCover(ctx, owner, trackID, bytes.NewReader([]byte("img2")), 4, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, old, updated.CoverURL)

	exists, err = f.blobs.Exists(ctx, old)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListUserTracks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.addUser(t, "ana@example.com")
	ben := f.addUser(t, "ben@example.com")
	f.addTrack(t, ana, "Ana Song")
	f.addTrack(t, ben, "Ben Song")

	tracks, err := f.svc.ListUserTracks(ctx, ana, 10)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Ana Song", tracks[0].Title)
}

func TestSearchTracks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.addUser(t, "ana@example.com")
	f.addTrack(t, userID, "Midnight Drive")
	f.addTrack(t, userID, "Sunrise")

	_, err := f.svc.SearchTracks(ctx, "   ", 10)
	assert.ErrorIs(t, err, ErrValidation)

	results, err := f.svc.SearchTracks(ctx, "midnight", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Midnight Drive", results[0].Title)
}
