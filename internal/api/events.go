package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/session"
	"github.com/erazemk/rezervator/internal/workflow"
)

// EventsHandler relays chat events from the gateway to the sessions.
type EventsHandler struct {
	Sessions *session.Manager
}

// eventRequest is one inbound chat event. Exactly one of Text, Token and
// Image is set; Image is base64 in JSON.
type eventRequest struct {
	Requester model.Requester `json:"requester"`
	Text      string          `json:"text,omitempty"`
	Token     string          `json:"token,omitempty"`
	Image     []byte          `json:"image,omitempty"`
}

type eventResponse struct {
	Replies []workflow.Reply `json:"replies"`
}

func (e eventRequest) intent() (intent.Intent, error) {
	set := 0
	for _, present := range []bool{e.Text != "", e.Token != "", len(e.Image) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return intent.Intent{}, errors.New("exactly one of text, token and image required")
	}

	switch {
	case e.Token != "":
		return intent.ParseToken(e.Token)
	case len(e.Image) > 0:
		return intent.Image(e.Image), nil
	default:
		return intent.Text(e.Text), nil
	}
}

// Post handles POST /api/events.
func (h *EventsHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Requester.ID == 0 {
		jsonError(w, http.StatusBadRequest, "requester id required")
		return
	}

	in, err := req.intent()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	replies := h.Sessions.Handle(r.Context(), req.Requester, in)
	jsonResponse(w, http.StatusOK, eventResponse{Replies: emptyIfNil(replies)})
}
