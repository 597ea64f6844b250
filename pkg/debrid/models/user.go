package models

type UnifiedUser struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Email          string            `json:"email"`
	IsPremium      bool              `json:"is_premium"`
	Expiration     *string           `json:"expiration"`
	Provider       Provider          `json:"provider"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}
