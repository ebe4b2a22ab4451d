package protocol

// Client to server message types.
const (
	TypeSpeechStart = "speech_start"
	TypeSpeechEnd   = "speech_end"
	TypeTextInput   = "text_input"
	TypeEndSession  = "end_session"
)

// Server to client message types.
const (
	TypeTranscriptPartial = "transcript_partial"
	TypeTranscriptFinal   = "transcript_final"
	TypeAgentThinking     = "agent_thinking"
	TypeAgentResponse     = "agent_response"
	TypeTTSStart          = "tts_start"
	TypeTTSEnd            = "tts_end"
	TypeStateChange       = "state_change"
	TypeStatus            = "status"
	TypeError             = "error"
	TypeASRStatus         = "asr_status"
)

// ClientMessage is a JSON control message from the browser.
type ClientMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
}

// ServerMessage is a JSON message to the browser. Unset fields are omitted,
// so one type serves every message shape in the protocol.
type ServerMessage struct {
	Type            string   `json:"type"`
	Text            string   `json:"text,omitempty"`
	Message         string   `json:"message,omitempty"`
	State           string   `json:"state,omitempty"`
	Language        string   `json:"language,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	ExplanationMode *bool    `json:"explanation_mode,omitempty"`
	Ready           *bool    `json:"ready,omitempty"`
	IsPartial       bool     `json:"is_partial,omitempty"`
}

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
