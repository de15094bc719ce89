package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pensieve-ai/pensieve/internal/session"
)

// maxMessageLength bounds one chat message.
const maxMessageLength = 8000

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Message string     `json:"message"`
	History []chatTurn `json:"history"`
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r chatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, maxMessageLength)),
		validation.Field(&r.History),
	)
}

func (t chatTurn) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Role, validation.Required,
			validation.In(string(session.RoleUser), string(session.RoleAssistant))),
		validation.Field(&t.Content, validation.Required),
	)
}

// chatResponse is the POST /api/chat reply.
type chatResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hist := session.NewHistory()
	for _, t := range req.History {
		hist.Add(session.Turn{Role: session.Role(t.Role), Content: t.Content})
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	answer, err := s.assistant.Answer(ctx, req.Message, hist)
	if err != nil {
		s.logger.Error("chat turn failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "chat turn timed out")
			return
		}
		writeError(w, http.StatusBadGateway, "completion failed")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}
