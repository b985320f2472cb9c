package room

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Store is what the handler needs from the repository.
type Store interface {
	Create(ctx context.Context, name string) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
	Get(ctx context.Context, id string) (*Room, error)
	UpdateName(ctx context.Context, id, name string) (*Room, error)
	Delete(ctx context.Context, id string) error
}

// Evicter drops a deleted room from the realtime membership registry.
// Members stay connected; later sends to the room id fail not-found.
type Evicter interface {
	EvictRoom(roomID string)
}

type Handler struct {
	store   Store
	evicter Evicter
}

func NewHandler(store Store, evicter Evicter) *Handler {
	return &Handler{store: store, evicter: evicter}
}

type roomRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rm, err := h.store.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			writeError(w, http.StatusConflict, "Room name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomId")
	rm, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room with ID "+id+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch room")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomId")
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rm, err := h.store.UpdateName(r.Context(), id, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "Room with ID "+id+" not found")
		case errors.Is(err, ErrNameTaken):
			writeError(w, http.StatusConflict, "Room name already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update room")
		}
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomId")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room with ID "+id+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete room")
		return
	}
	h.evicter.EvictRoom(id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}
