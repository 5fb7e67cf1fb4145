package domain

import "encoding/json"

// AnonymousUser is used when a chat turn arrives without a user id.
const AnonymousUser = "anonymous"

// ChatTurnRequest is one inbound chat turn from the UI.
type ChatTurnRequest struct {
	Message  string
	UserID   string
	Profile  Profile
	Language string
}

// NormalizedResponse is the stable reply shape returned to the UI regardless
// of which payload shape the upstream workflow produced.
type NormalizedResponse struct {
	Text        string          `json:"text"`
	Cards       []Card          `json:"cards"`
	Suggestions []string        `json:"suggestions"`
	Raw         json.RawMessage `json:"raw"`
}

// Card is a structured content snippet attached to an answer. Raw keeps the
// upstream element so fields this type does not model survive the round trip.
type Card struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	type plain Card
	return json.Marshal(plain(c))
}
