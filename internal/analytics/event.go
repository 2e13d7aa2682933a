package analytics

import "time"

const (
	TopicLinkCreated  = "link.created"
	TopicLinkResolved = "link.resolved"
)

// LinkCreatedEvent is emitted when a submission ends with a short link,
// whether newly allocated or reused from the index.
type LinkCreatedEvent struct {
	Code       string    `json:"code"`
	LongURL    string    `json:"longUrl"`
	Reused     bool      `json:"reused"`
	Address    string    `json:"address,omitempty"`
	AuthMethod string    `json:"authMethod,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
}

// LinkResolvedEvent is emitted when a short code is resolved for a redirect.
type LinkResolvedEvent struct {
	Code       string    `json:"code"`
	ResolvedAt time.Time `json:"resolvedAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer"`
}
