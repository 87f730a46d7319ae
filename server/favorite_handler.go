package server

import (
	"net/http"

	"musicstream/core/catalog"

	"github.com/gorilla/mux"
)

// ToggleFavoriteHandler flips a track's membership in the caller's
// favorites. Calling it twice restores the original state.
func (h *APIHandler) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.catalog.ToggleFavorite(r.Context(), userID, mux.Vars(r)["musicId"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"result":     result,
		"isFavorite": result == catalog.ToggleAdded,
	})
}

// ListFavoritesHandler returns the caller's favorite tracks, with dangling
// ids filtered out.
func (h *APIHandler) ListFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	tracks, err := h.catalog.ListFavorites(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}
