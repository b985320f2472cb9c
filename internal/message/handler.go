package message

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultTake = 100
	maxTake     = 500
)

// Sender is the single persist-then-broadcast entry point, implemented by
// the chat hub. Routing REST creation through it guarantees a stored message
// is broadcast exactly once no matter which path created it.
type Sender interface {
	SendMessage(ctx context.Context, roomID, senderName, content string) (*Message, error)
}

// Store is what the handler needs from the repository for reads and deletes.
type Store interface {
	List(ctx context.Context, roomID string, skip, take int) ([]*Message, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	sender Sender
	store  Store
}

func NewHandler(sender Sender, store Store) *Handler {
	return &Handler{sender: sender, store: store}
}

type createRequest struct {
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.sender.SendMessage(r.Context(), roomID, req.SenderName, req.Content)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Reason)
		case errors.Is(err, ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "Room with ID "+roomID+" not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to send message")
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	skip := queryInt(r, "skip", 0)
	take := queryInt(r, "take", defaultTake)
	if take > maxTake {
		take = maxTake
	}

	msgs, err := h.store.List(r.Context(), roomID, skip, take)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "Room with ID "+roomID+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Message with ID "+id+" not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"statusCode": status, "message": msg})
}
