package repo

import "time"

// Dispatch outcomes stored in dispatch_log.status.
const (
	DispatchSent   = "sent"
	DispatchFailed = "failed"
)

// DispatchRecord is one attempt to deliver a notice to a client.
type DispatchRecord struct {
	ID         string    `json:"id"`
	ClientID   int64     `json:"client_id"`
	NoticeKind string    `json:"notice_kind"`
	Channel    string    `json:"channel"`
	Phone      string    `json:"phone"`
	Status     string    `json:"status"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
