package activity

// ListActivityRequest asks for a user's recent activity.
type ListActivityRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// ListActivityResponse lists entries, newest first.
type ListActivityResponse struct {
	Entries []Entry `json:"entries"`
}
