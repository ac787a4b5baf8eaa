package fiber

// TrackEventRequest is the beacon payload emitted by the tracker script.
// @Description Tracking beacon DTO
type TrackEventRequest struct {
	SiteID     int64          `json:"site_id"`
	VisitorID  string         `json:"visitor_id"`
	Name       string         `json:"name"`
	OccurredAt int64          `json:"occurred_at,omitempty"`
	Properties map[string]any `json:"properties"`
}

type TrackEventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_event_name"`
	Message string `json:"message,omitempty" example:"invalid event name"`
}
