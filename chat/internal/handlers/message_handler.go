package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/relayroom/relayroom/chat/internal/middleware"
	"github.com/relayroom/relayroom/chat/internal/models"
	"github.com/relayroom/relayroom/chat/internal/service"
	"github.com/relayroom/relayroom/common/httputil"
)

type MessageHandler struct {
	service *service.ChatService
}

func NewMessageHandler(service *service.ChatService) *MessageHandler {
	return &MessageHandler{
		service: service,
	}
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req models.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Body == "" {
		httputil.WriteError(w, http.StatusBadRequest, "body is required")
		return
	}

	msg, err := h.service.PostMessage(r.Context(), middleware.UserID(r.Context()), r.PathValue("roomID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	req := models.ListMessagesRequest{
		RoomID: r.PathValue("roomID"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("before"); v != "" {
		before, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		req.Before = before
	}

	messages, err := h.service.ListMessages(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Body == "" {
		httputil.WriteError(w, http.StatusBadRequest, "body is required")
		return
	}

	msg, err := h.service.UpdateMessage(r.Context(), middleware.UserID(r.Context()),
		r.PathValue("roomID"), r.PathValue("messageID"), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteMessage(r.Context(), middleware.UserID(r.Context()),
		r.PathValue("roomID"), r.PathValue("messageID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
