package models

import "time"

// SmsStatus is the delivery outcome recorded per recipient.
type SmsStatus string

const (
	SmsStatusSent   SmsStatus = "sent"
	SmsStatusFailed SmsStatus = "failed"
)

// SmsType labels the purpose of an outgoing message.
type SmsType string

const (
	SmsTypeGeneral SmsType = "general"
	SmsTypeResult  SmsType = "result"
	SmsTypeTest    SmsType = "test"
)

// Settings is the singleton row holding the SMS balance and gateway
// credentials. The balance is only ever decremented through an atomic
// conditional update.
type Settings struct {
	ID          int       `db:"id" json:"id"`
	SmsCount    int       `db:"sms_count" json:"sms_count"`
	SmsAPIKey   *string   `db:"sms_api_key" json:"sms_api_key,omitempty"`
	SmsAPIURL   *string   `db:"sms_api_url" json:"sms_api_url,omitempty"`
	SmsSenderID *string   `db:"sms_sender_id" json:"sms_sender_id,omitempty"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SandboxMode reports whether sends should be short-circuited as delivered.
// An unset API key means no real gateway is wired, which is the testing
// affordance of the legacy system.
func (s Settings) SandboxMode() bool {
	return s.SmsAPIKey == nil || *s.SmsAPIKey == ""
}

// SettingsUpdate carries partial settings changes.
type SettingsUpdate struct {
	SmsCount    *int    `json:"sms_count" validate:"omitempty,gte=0"`
	SmsAPIKey   *string `json:"sms_api_key"`
	SmsAPIURL   *string `json:"sms_api_url" validate:"omitempty,url"`
	SmsSenderID *string `json:"sms_sender_id"`
}

// SmsLog is the append-only audit record of one SMS send attempt.
type SmsLog struct {
	ID        string    `db:"id" json:"id"`
	Recipient string    `db:"recipient" json:"recipient"`
	Message   string    `db:"message" json:"message"`
	SmsType   SmsType   `db:"sms_type" json:"sms_type"`
	Status    SmsStatus `db:"status" json:"status"`
	SentBy    string    `db:"sent_by" json:"sent_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SmsLogFilter scopes audit listing.
type SmsLogFilter struct {
	Status   string
	SmsType  string
	Page     int
	PageSize int
}

// SmsDispatchResult summarises a bulk send outcome.
type SmsDispatchResult struct {
	Requested int `json:"requested"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}
