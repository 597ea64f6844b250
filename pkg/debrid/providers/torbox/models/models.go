package models

// BaseResponse is the envelope wrapping every TorBox reply, success or not.
type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Error   any    `json:"error"`
	Detail  string `json:"detail"`

	Data *T `json:"data"`
}

// ErrorCode extracts the code; TorBox sends either a string or an object.
func (r *BaseResponse[T]) ErrorCode() string {
	switch v := r.Error.(type) {
	case string:
		return v
	case map[string]any:
		if code, ok := v["code"].(string); ok {
			return code
		}
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}

	return ""
}

// Message is the detail text, or the error code when no detail is given.
func (r *BaseResponse[T]) Message() string {
	if r.Detail != "" {
		return r.Detail
	}

	return r.ErrorCode()
}

type CreateTorrentData struct {
	TorrentID *int   `json:"torrent_id,omitempty"`
	QueuedID  *int   `json:"queued_id,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Name      string `json:"name,omitempty"`
	AuthID    string `json:"auth_id,omitempty"`
}

// ID prefers the torrent id; queued torrents only carry a queued id.
func (d *CreateTorrentData) ID() (int, bool) {
	if d.TorrentID != nil {
		return *d.TorrentID, true
	}
	if d.QueuedID != nil {
		return *d.QueuedID, true
	}

	return 0, false
}
