package voice

// StartRequest opens a realtime voice session.
type StartRequest struct {
	ChatbotID      string `json:"chatbot_id" binding:"required"`
	UserID         string `json:"user_id"`
	UserEmail      string `json:"user_email"`
	UserPlan       string `json:"user_plan"`
	ConversationID string `json:"conversation_id"`
	Voice          string `json:"voice"`
}

// TranscriptMessage is one line of a client-side transcript.
type TranscriptMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type SaveRequest struct {
	ConversationID string              `json:"conversation_id"`
	ChatbotID      string              `json:"chatbot_id"`
	UserID         string              `json:"user_id"`
	UserEmail      string              `json:"user_email"`
	UserPlan       string              `json:"user_plan"`
	Messages       []TranscriptMessage `json:"messages"`
}

type LeadRequest struct {
	ChatbotID      string `json:"chatbot_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
}

type SearchRequest struct {
	ChatbotID string `json:"chatbot_id" binding:"required"`
	Query     string `json:"query" binding:"required"`
}

type HandoffRequest struct {
	ChatbotID string `json:"chatbot_id" binding:"required"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Urgency   string `json:"urgency"`
}

// LiveSession is what a browser needs to open a Gemini Live socket.
type LiveSession struct {
	WebsocketURL   string        `json:"websocket_url"`
	APIKey         string        `json:"api_key,omitempty"`
	Config         LiveConfig    `json:"config"`
	ConversationID string        `json:"conversation_id"`
	Model          string        `json:"model"`
	Modalities     []string      `json:"modalities"`
	TurnDetection  TurnDetection `json:"turn_detection"`
}

type LiveConfig struct {
	Model             string            `json:"model"`
	GenerationConfig  GenerationConfig  `json:"generation_config"`
	SystemInstruction SystemInstruction `json:"system_instruction"`
	Tools             []LiveTools       `json:"tools"`
}

type GenerationConfig struct {
	ResponseModalities []string     `json:"response_modalities"`
	SpeechConfig       SpeechConfig `json:"speech_config"`
}

type SpeechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voice_name"`
		} `json:"prebuilt_voice_config"`
	} `json:"voice_config"`
}

type SystemInstruction struct {
	Parts []TextPart `json:"parts"`
}

type TextPart struct {
	Text string `json:"text"`
}

type LiveTools struct {
	FunctionDeclarations []map[string]any `json:"function_declarations"`
}

type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}
