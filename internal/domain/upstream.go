package domain

// ResponseModeBlocking asks the upstream for a single synchronous answer.
const ResponseModeBlocking = "blocking"

// UpstreamRequest is the body of the upstream "create chat message" call.
// The message is sent both as Query and Inputs.Query; workflows read either.
type UpstreamRequest struct {
	Query          string         `json:"query"`
	Inputs         UpstreamInputs `json:"inputs"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

type UpstreamInputs struct {
	Query    string  `json:"query"`
	Profile  Profile `json:"profile"`
	Language string  `json:"language,omitempty"`
}

// Credentials identify the upstream application.
type Credentials struct {
	APIKey string
	AppID  string
}
