package reminders

// MarkSentRequest is the body of the mark-sent endpoints. The idempotency key
// is optional; callers retrying after partial failures should supply one so a
// duplicate mark is rejected instead of double-counted.
type MarkSentRequest struct {
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,min=8,max=128"`
}

// MarkSentResponse acknowledges a recorded dispatch.
type MarkSentResponse struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
}

// SuggestionListResponse wraps a suggestion listing.
type SuggestionListResponse struct {
	WorkspaceID int64        `json:"workspace_id"`
	Count       int          `json:"count"`
	Reminders   []Suggestion `json:"reminders"`
}
