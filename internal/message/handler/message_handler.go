// Package handler exposes the message service over HTTP/JSON.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/dbmysql"
	"gosocialmsg/internal/message/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SendMessageRequest struct {
	Recipients []uint64 `json:"recipients" validate:"required,min=1,dive,gt=0"`
	Subject    string   `json:"subject" validate:"max=255"`
	Body       string   `json:"body" validate:"required"`
	Type       string   `json:"type" validate:"omitempty,max=64"`
	Identifier int64    `json:"identifier"`
	IsRead     bool     `json:"is_read"`
}

type DraftRequest struct {
	Subject string `json:"subject" validate:"max=255"`
	Body    string `json:"body"`
}

type ReplyRequest struct {
	Subject string `json:"subject" validate:"max=255"`
	Body    string `json:"body" validate:"required"`
}

// MessageHandler serves /messages and /members routes
type MessageHandler struct {
	service  service.MessageService
	validate *validator.Validate
}

func NewMessageHandler(s service.MessageService) *MessageHandler {
	return &MessageHandler{
		service:  s,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the message API on an /api/v1 subrouter.
func (h *MessageHandler) RegisterRoutes(api *mux.Router) {
	messages := api.PathPrefix("/messages").Subrouter()
	messages.HandleFunc("", h.SendMessage).Methods(http.MethodPost)
	messages.HandleFunc("/drafts", h.SaveDraft).Methods(http.MethodPost)
	messages.HandleFunc("/drafts", h.ListDrafts).Methods(http.MethodGet)
	messages.HandleFunc("/sent", h.ListSent).Methods(http.MethodGet)
	messages.HandleFunc("/lookup", h.Lookup).Methods(http.MethodGet)
	messages.HandleFunc("/{id:[0-9]+}/reply", h.Reply).Methods(http.MethodPost)
	messages.HandleFunc("/{id:[0-9]+}/previous", h.Previous).Methods(http.MethodGet)
	messages.HandleFunc("/{id:[0-9]+}/next", h.Next).Methods(http.MethodGet)
	messages.HandleFunc("/{id:[0-9]+}/replies/{memberId:[0-9]+}", h.ReplyOf).Methods(http.MethodGet)
	messages.HandleFunc("/{id:[0-9]+}/read", h.MarkAsRead).Methods(http.MethodPut)
	messages.HandleFunc("/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)

	members := api.PathPrefix("/members").Subrouter()
	members.HandleFunc("/me/senders", h.Senders).Methods(http.MethodGet)
	members.HandleFunc("/{memberId:[0-9]+}/latest", h.Latest).Methods(http.MethodGet)
	members.HandleFunc("/{memberId:[0-9]+}/messages", h.Conversation).Methods(http.MethodGet)
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	message, err := h.service.Send(r.Context(), me, service.SendRequest{
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
		Type:       req.Type,
		Identifier: req.Identifier,
		IsRead:     req.IsRead,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

func (h *MessageHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}

	var req DraftRequest
	if !h.decode(w, r, &req) {
		return
	}

	draft, err := h.service.SaveDraft(r.Context(), me, req.Subject, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (h *MessageHandler) Reply(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ReplyRequest
	if !h.decode(w, r, &req) {
		return
	}

	reply, err := h.service.Reply(r.Context(), me, messageID, req.Subject, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (h *MessageHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.SentMessages(r.Context(), me, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MessageHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	page, size, ok := pageParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.Drafts(r.Context(), me, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *MessageHandler) Previous(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	message, err := h.service.Previous(r.Context(), me, messageID)
	writeMessage(w, message, err)
}

func (h *MessageHandler) Next(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	message, err := h.service.Next(r.Context(), me, messageID)
	writeMessage(w, message, err)
}

// ReplyOf returns the reply memberId sent to message id.
func (h *MessageHandler) ReplyOf(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}

	message, err := h.service.ReplyOf(r.Context(), me, memberID, messageID)
	writeMessage(w, message, err)
}

// Lookup finds a typed message by sender, recipient and foreign identifier.
// "to" defaults to the current member.
func (h *MessageHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	from, err := strconv.ParseUint(q.Get("from"), 10, 64)
	if err != nil || from == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "from must be a member id")
		return
	}
	to := me
	if v := q.Get("to"); v != "" {
		if to, err = strconv.ParseUint(v, 10, 64); err != nil || to == 0 {
			writeErrorMessage(w, http.StatusBadRequest, "to must be a member id")
			return
		}
	}
	var identifier int64
	if v := q.Get("identifier"); v != "" {
		if identifier, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "identifier must be an integer")
			return
		}
	}

	message, err := h.service.Lookup(r.Context(), me, from, to, q.Get("type"), identifier)
	writeMessage(w, message, err)
}

func (h *MessageHandler) Senders(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}

	members, err := h.service.Senders(r.Context(), me)
	if err != nil {
		writeError(w, err)
		return
	}
	if members == nil {
		members = []*dbmysql.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MessageHandler) Latest(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}

	message, err := h.service.Latest(r.Context(), me, memberID)
	writeMessage(w, message, err)
}

// Conversation returns one batch of the history with memberId; max_id continues an earlier batch.
func (h *MessageHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}

	maxID := int64(-1)
	if v := r.URL.Query().Get("max_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "max_id must be an integer")
			return
		}
		maxID = parsed
	}

	messages, err := h.service.Conversation(r.Context(), me, memberID, maxID)
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []*dbmysql.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.MarkAsRead(r.Context(), me, messageID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	me, ok := h.currentMember(w, r)
	if !ok {
		return
	}
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), me, messageID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) currentMember(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := common.MemberIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return 0, false
	}
	return id, true
}

func (h *MessageHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || id == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageParams reads ?page=&size=; zero means the pager default.
func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	values := [2]int{}
	for i, name := range []string{"page", "size"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorMessage(w, http.StatusBadRequest, name+" must be a non-negative integer")
			return 0, 0, false
		}
		values[i] = n
	}
	return values[0], values[1], true
}

// writeMessage maps a nil message to 404
func writeMessage(w http.ResponseWriter, message *dbmysql.Message, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if message == nil {
		writeErrorMessage(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrUnknownMessageType):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, common.ErrUnauthenticated):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
