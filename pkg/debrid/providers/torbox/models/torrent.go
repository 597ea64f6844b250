package models

import (
	"bytes"
	"encoding/json"
)

type Torrent struct {
	Id               int          `json:"id"`
	AuthId           string       `json:"auth_id"`
	Server           int          `json:"server"`
	Hash             string       `json:"hash"`
	Name             string       `json:"name"`
	Magnet           any          `json:"magnet"`
	Size             int64        `json:"size"`
	Active           bool         `json:"active"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
	DownloadState    string       `json:"download_state"`
	Seeds            int          `json:"seeds"`
	Peers            int          `json:"peers"`
	Ratio            float64      `json:"ratio"`
	Progress         float64      `json:"progress"`
	DownloadSpeed    int64        `json:"download_speed"`
	UploadSpeed      int64        `json:"upload_speed"`
	ETA              int64        `json:"eta"`
	TorrentFile      bool         `json:"torrent_file"`
	ExpiresAt        any          `json:"expires_at"`
	DownloadPresent  bool         `json:"download_present"`
	Files            []TorboxFile `json:"files"`
	DownloadFinished bool         `json:"download_finished"`
	Cached           bool         `json:"cached"`
}

// UnmarshalJSON fills Id from torrent_id or queued_id when id is absent.
func (t *Torrent) UnmarshalJSON(d []byte) error {
	type Alias Torrent
	type Aux struct {
		*Alias

		TorrentID *int `json:"torrent_id"`
		QueuedID  *int `json:"queued_id"`
	}

	aux := &Aux{
		Alias: (*Alias)(t),
	}

	err := json.Unmarshal(d, &aux)
	if err != nil {
		return err
	}

	if t.Id == 0 {
		if aux.TorrentID != nil {
			t.Id = *aux.TorrentID
		}

		if aux.QueuedID != nil {
			t.Id = *aux.QueuedID
		}
	}

	return err
}

// TorrentData holds mylist?id= data, which TorBox returns either as the
// torrent object or as a list holding it.
type TorrentData struct {
	Torrent *Torrent
}

func (d *TorrentData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		d.Torrent = nil
		return nil
	}

	if b[0] == '[' {
		var list []Torrent
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			d.Torrent = nil
			return nil
		}
		d.Torrent = &list[0]
		return nil
	}

	var single Torrent
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	d.Torrent = &single

	return nil
}

type CachedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CachedTorrent is one entry of checkcached?format=object, keyed by hash.
type CachedTorrent struct {
	Name  string       `json:"name"`
	Size  int64        `json:"size"`
	Hash  string       `json:"hash"`
	Files []CachedFile `json:"files"`
}

// CachedData is checkcached data keyed by hash. TorBox sends an object for
// format=object, and may send an empty list when nothing is cached.
type CachedData map[string]CachedTorrent

func (c *CachedData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = nil
		return nil
	}

	if b[0] == '[' {
		var list []CachedTorrent
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		out := make(CachedData, len(list))
		for _, t := range list {
			out[t.Hash] = t
		}
		*c = out
		return nil
	}

	var m map[string]CachedTorrent
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*c = m

	return nil
}
