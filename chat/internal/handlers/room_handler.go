package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/relayroom/relayroom/chat/internal/middleware"
	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/repository"
	"github.com/relayroom/relayroom/chat/internal/service"
	"github.com/relayroom/relayroom/common/httputil"
)

type RoomHandler struct {
	service *service.ChatService
}

func NewRoomHandler(service *service.ChatService) *RoomHandler {
	return &RoomHandler{
		service: service,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.service.CreateRoom(r.Context(), middleware.UserID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	room, err := h.service.UpdateRoom(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httputil.ParsePagination(r, 50, 200)

	resp, err := h.service.ListRooms(r.Context(), middleware.UserID(r.Context()), p.Page, p.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *RoomHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req models.AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	m, err := h.service.AddMember(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *RoomHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveMember(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, members)
}

// writeServiceError maps service and repository errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrAlreadyExists):
		httputil.WriteError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, service.ErrNotRoomMember):
		httputil.WriteError(w, http.StatusForbidden, "Not a room member")
	case errors.Is(err, service.ErrNotAuthorized):
		httputil.WriteError(w, http.StatusForbidden, "Not authorized")
	case errors.Is(err, service.ErrEventBackpressure):
		httputil.WriteError(w, http.StatusServiceUnavailable, "Event pipeline saturated, retry with the same idempotency key")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
