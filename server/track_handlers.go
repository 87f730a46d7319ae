package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"musicstream/core/catalog"
	"musicstream/logger"

	"github.com/gorilla/mux"
)

const defaultListLimit = 1000

// UploadTrackHandler handles audio uploads with metadata.
// Expected multipart form fields:
// - audio: the audio file (required)
// - cover: cover art image (optional)
// - title, artist, genre, duration: track metadata
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Missing 'audio' in form", http.StatusBadRequest)
		return
	}
	defer audioFile.Close()

	duration, _ := strconv.Atoi(r.FormValue("duration"))

	in := catalog.UploadTrackInput{
		Title:            r.FormValue("title"),
		Artist:           r.FormValue("artist"),
		Genre:            r.FormValue("genre"),
		Duration:         duration,
		Audio:            audioFile,
		AudioSize:        audioHeader.Size,
		AudioContentType: audioHeader.Header.Get("Content-Type"),
	}

	if coverFile, coverHeader, err := r.FormFile("cover"); err == nil {
		defer coverFile.Close()
		in.Cover = coverFile
		in.CoverSize = coverHeader.Size
		in.CoverContentType = coverHeader.Header.Get("Content-Type")
	}

	track, err := h.catalog.UploadTrack(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

// ListTracksHandler returns the newest tracks.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.ListTracks(r.Context(), defaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// MyTracksHandler returns the tracks the caller uploaded.
func (h *APIHandler) MyTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tracks, err := h.catalog.ListUserTracks(r.Context(), userID, defaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// SearchTracksHandler runs a text search over track metadata.
func (h *APIHandler) SearchTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.SearchTracks(r.Context(), r.URL.Query().Get("q"), defaultListLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler resolves one track.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.catalog.GetTrack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// StreamTrackHandler streams a track's audio payload from object storage.
func (h *APIHandler) StreamTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.catalog.GetTrack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	obj, err := h.blobs.Fetch(r.Context(), track.AudioKey)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, obj); err != nil {
		logger.Warn("stream interrupted",
			logger.String("trackId", track.ID.Hex()),
			logger.ErrorField(err))
	}
}

// SetTrackCoverHandler replaces the cover image on a track the caller
// uploaded. Expects a multipart form with a 'cover' file field.
func (h *APIHandler) SetTrackCoverHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse multipart form: %v", err), http.StatusBadRequest)
		return
	}

	coverFile, coverHeader, err := r.FormFile("cover")
	if err != nil {
		http.Error(w, "Missing 'cover' in form", http.StatusBadRequest)
		return
	}
	defer coverFile.Close()

	track, err := h.catalog.SetTrackCover(r.Context(), userID, mux.Vars(r)["id"],
		coverFile, coverHeader.Size, coverHeader.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler removes a track the caller uploaded.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.catalog.DeleteTrack(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
