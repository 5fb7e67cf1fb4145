// Package normalize turns the upstream workflow payload into a stable
// NormalizedResponse. Workflow configurations emit different shapes, so the
// payload is classified first and each shape is handled explicitly. Nothing
// in this package returns an error; unknown input degrades to empty fields.
package normalize

import (
	"bytes"
	"encoding/json"

	"chat-relay/internal/domain"
)

// Shape is the detected layout of an upstream payload.
type Shape int

const (
	Unknown Shape = iota
	ArrayOutputs
	ObjectOutputs
	FlatFields
)

func (s Shape) String() string {
	switch s {
	case ArrayOutputs:
		return "array_outputs"
	case ObjectOutputs:
		return "object_outputs"
	case FlatFields:
		return "flat_fields"
	default:
		return "unknown"
	}
}

// fallbackKeys are consulted in order when no text came from outputs.
var fallbackKeys = []string{"result", "message", "answer"}

type fields map[string]json.RawMessage

// Classify reports which known shape raw matches.
func Classify(raw []byte) Shape {
	_, shape := parse(raw)
	return shape
}

// Normalize extracts text, cards and suggestions from raw. Structured
// outputs win over the flat result/message/answer fields.
func Normalize(raw []byte) domain.NormalizedResponse {
	out := domain.NormalizedResponse{
		Cards:       []domain.Card{},
		Suggestions: []string{},
		Raw:         rawPayload(raw),
	}

	top, shape := parse(raw)
	switch shape {
	case ArrayOutputs:
		fromArray(&out, top["outputs"])
	case ObjectOutputs:
		fromObject(&out, top["outputs"])
	}

	if out.Text == "" {
		for _, key := range fallbackKeys {
			if s, ok := asString(top[key]); ok {
				out.Text = s
				break
			}
		}
	}
	return out
}

// ConversationID returns the top-level string conversation_id, or "".
func ConversationID(raw []byte) string {
	top, ok := asObject(raw)
	if !ok {
		return ""
	}
	id, _ := asString(top["conversation_id"])
	return id
}

func parse(raw []byte) (fields, Shape) {
	top, ok := asObject(raw)
	if !ok {
		return nil, Unknown
	}
	switch kind(top["outputs"]) {
	case '[':
		return top, ArrayOutputs
	case '{':
		return top, ObjectOutputs
	}
	for _, key := range fallbackKeys {
		if _, ok := top[key]; ok {
			return top, FlatFields
		}
	}
	return top, Unknown
}

func fromArray(out *domain.NormalizedResponse, raw json.RawMessage) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return
	}
	for _, elem := range elems {
		if s, ok := asString(elem); ok {
			appendText(out, s)
			continue
		}
		obj, ok := asObject(elem)
		if !ok {
			continue
		}
		if s, ok := asString(obj["text"]); ok {
			appendText(out, s)
		}
		if cards, ok := asCards(obj["cards"]); ok {
			out.Cards = append(out.Cards, cards...)
		}
		if suggestions, ok := asStrings(obj["suggestions"]); ok {
			out.Suggestions = append(out.Suggestions, suggestions...)
		}
	}
}

func fromObject(out *domain.NormalizedResponse, raw json.RawMessage) {
	obj, ok := asObject(raw)
	if !ok {
		return
	}
	if s, ok := asString(obj["text"]); ok {
		out.Text = s
	}
	if cards, ok := asCards(obj["cards"]); ok {
		out.Cards = cards
	}
	if suggestions, ok := asStrings(obj["suggestions"]); ok {
		out.Suggestions = suggestions
	}
}

// appendText joins with a newline, but only once text is non-empty.
func appendText(out *domain.NormalizedResponse, s string) {
	if out.Text != "" {
		out.Text += "\n"
	}
	out.Text += s
}

func asCards(raw json.RawMessage) ([]domain.Card, bool) {
	if kind(raw) != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	cards := make([]domain.Card, 0, len(elems))
	for _, elem := range elems {
		obj, ok := asObject(elem)
		if !ok {
			continue
		}
		card := domain.Card{Raw: append(json.RawMessage(nil), elem...)}
		card.Title, _ = asString(obj["title"])
		card.Description, _ = asString(obj["description"])
		card.Image, _ = asString(obj["image"])
		cards = append(cards, card)
	}
	return cards, true
}

// asStrings keeps the string elements of a JSON array.
func asStrings(raw json.RawMessage) ([]string, bool) {
	if kind(raw) != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		if s, ok := asString(elem); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func asString(raw json.RawMessage) (string, bool) {
	if kind(raw) != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func asObject(raw []byte) (fields, bool) {
	if kind(raw) != '{' {
		return nil, false
	}
	var obj fields
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// kind returns the first significant byte of a JSON value, or 0.
func kind(raw []byte) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// rawPayload returns raw when it is valid JSON. An empty body becomes {} and
// anything else is carried as a JSON string.
func rawPayload(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`{}`)
	}
	if json.Valid(raw) {
		return append(json.RawMessage(nil), raw...)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
