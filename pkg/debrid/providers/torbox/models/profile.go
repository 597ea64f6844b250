package models

import "encoding/json"

type User struct {
	Id               int64  `json:"id"`
	AuthId           string `json:"auth_id"`
	CreatedAt        string `json:"created_at"`
	Plan             int    `json:"plan"`
	TotalDownloaded  int64  `json:"total_downloaded"`
	Customer         string `json:"customer"`
	Server           int    `json:"server"`
	IsSubscribed     bool   `json:"is_subscribed"`
	PremiumExpiresAt string `json:"premium_expires_at"`
	CooldownUntil    string `json:"cooldown_until"`
	Email            string `json:"email"`
	BaseEmail        string `json:"base_email"`
}

// UnmarshalJSON also honours the camelCase isSubscribed some API versions send.
func (u *User) UnmarshalJSON(d []byte) error {
	type Alias User
	aux := &struct {
		*Alias

		IsSubscribedCamel *bool `json:"isSubscribed"`
	}{
		Alias: (*Alias)(u),
	}

	if err := json.Unmarshal(d, aux); err != nil {
		return err
	}

	if aux.IsSubscribedCamel != nil && *aux.IsSubscribedCamel {
		u.IsSubscribed = true
	}

	return nil
}
