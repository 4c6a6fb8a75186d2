package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/stupiduntilnot/chatrelay/internal/chat"
	"github.com/stupiduntilnot/chatrelay/internal/history"
)

// maxFieldLength bounds message/text fields at the schema level. The
// orchestrator applies the tighter per-operation limits.
const maxFieldLength = 2000

type askRequest struct {
	Message *string `json:"message"`
	System  *string `json:"system"`
}

type askResponse struct {
	Reply        string `json:"reply"`
	TokensInput  int    `json:"tokens_input"`
	TokensOutput int    `json:"tokens_output"`
}

type textRequest struct {
	Text *string `json:"text"`
}

type editRegenResponse struct {
	Updated   *history.Message `json:"updated"`
	Assistant *history.Message `json:"assistant"`
}

// checkField enforces presence and the 1..maxFieldLength schema bound.
func checkField(v *string) string {
	if v == nil {
		return "required"
	}
	n := utf8.RuneCountInString(*v)
	if n < 1 {
		return "too_short"
	}
	if n > maxFieldLength {
		return "too_long"
	}
	return ""
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(w, http.StatusRequestEntityTooLarge, "request_too_large")
			return false
		}
		h.invalid(w, "body", "malformed_json")
		return false
	}
	return true
}

func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.invalid(w, "id", "must_be_positive_integer")
		return 0, false
	}
	return id, true
}

// Ask handles POST /api/chat/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !h.decode(w, r, &req) {
		return
	}
	if reason := checkField(req.Message); reason != "" {
		h.invalid(w, "message", reason)
		return
	}
	system := ""
	if req.System != nil {
		system = *req.System
	}

	res, err := h.chat.Ask(r.Context(), *req.Message, system)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, askResponse{
		Reply:        res.Reply,
		TokensInput:  res.InputTokens,
		TokensOutput: res.OutputTokens,
	})
}

// History handles GET /api/chat/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := chat.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > chat.MaxHistoryLimit {
			h.invalid(w, "limit", "must_be_between_1_and_200")
			return
		}
		limit = n
	}

	msgs, err := h.chat.History(r.Context(), limit)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, msgs)
}

// UpdateMessage handles PUT /api/chat/message/{id}.
func (h *Handler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !h.decode(w, r, &req) {
		return
	}
	if reason := checkField(req.Text); reason != "" {
		h.invalid(w, "text", reason)
		return
	}

	updated, err := h.chat.UpdateMessage(r.Context(), id, *req.Text)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, updated)
}

// EditAndRegenerate handles POST /api/chat/message/{id}/edit_regen.
func (h *Handler) EditAndRegenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.messageID(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !h.decode(w, r, &req) {
		return
	}
	if reason := checkField(req.Text); reason != "" {
		h.invalid(w, "text", reason)
		return
	}

	updated, assistant, err := h.chat.EditAndRegenerate(r.Context(), id, *req.Text)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, editRegenResponse{Updated: updated, Assistant: assistant})
}

// Reset handles DELETE /api/chat/history.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if _, err := h.chat.Reset(r.Context()); err != nil {
		h.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
