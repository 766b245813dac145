package knowledge

type IngestRequest struct {
	ChatbotID  string `json:"chatbot_id" binding:"required"`
	WebhookURL string `json:"webhook_url"`
}

type DeleteSourceRequest struct {
	ChatbotID string `json:"chatbot_id" binding:"required"`
	Source    string `json:"source" binding:"required"`
}

type SyncResponse struct {
	Message   string   `json:"message"`
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Sources   []string `json:"sources,omitempty"`
}

type DeleteSourceResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}
