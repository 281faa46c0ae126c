package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/roomhost/internal/api/middleware"
	"github.com/mcoot/roomhost/internal/api/request"
	"github.com/mcoot/roomhost/internal/api/response"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/room"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomController room.ControllerInterface
	logger         *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomController room.ControllerInterface, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		roomController: roomController,
		logger:         logger,
	}
}

// Create handles POST /api/v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())

	var req request.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	rm, err := h.roomController.CreateRoom(r.Context(), identity, req.Name, req.Capacity)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RoomFromModel(rm))
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomController.ListRooms(r.Context())
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomsFromModel(rooms))
}

// Get handles GET /api/v1/rooms/{guid}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	guid := model.RoomGUID(mux.Vars(r)["guid"])

	rm, err := h.roomController.GetRoom(r.Context(), guid)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(rm))
}

// Join handles POST /api/v1/rooms/{guid}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	guid := model.RoomGUID(mux.Vars(r)["guid"])

	rm, err := h.roomController.JoinRoom(r.Context(), identity, guid)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomAction{
		Message: response.MessageJoined,
		Room:    response.RoomFromModel(rm),
	})
}

// Leave handles POST /api/v1/rooms/{guid}/leave
func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	guid := model.RoomGUID(mux.Vars(r)["guid"])

	rm, err := h.roomController.LeaveRoom(r.Context(), identity, guid)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomAction{
		Message: response.MessageLeft,
		Room:    response.RoomFromModel(rm),
	})
}

// ChangeHost handles POST /api/v1/rooms/{guid}/change-host
func (h *RoomHandler) ChangeHost(w http.ResponseWriter, r *http.Request) {
	identity := middleware.MustGetIdentity(r.Context())
	guid := model.RoomGUID(mux.Vars(r)["guid"])

	var req request.ChangeHostRequest
	// an empty body is reported as a missing new host
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	rm, err := h.roomController.ChangeHost(r.Context(), identity, guid, model.UserID(req.UserID))
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomAction{
		Message: response.MessageHostChanged,
		Room:    response.RoomFromModel(rm),
	})
}

// SearchUserRooms handles GET /api/v1/rooms/user/{username}
func (h *RoomHandler) SearchUserRooms(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	rooms, err := h.roomController.SearchUserRooms(r.Context(), username)
	if err != nil {
		fail(h.logger, w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomsFromModel(rooms))
}
