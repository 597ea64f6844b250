package models

type UnifiedTorrent struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Hash          string        `json:"hash"`
	Size          int64         `json:"size"`
	Progress      float64       `json:"progress"`
	Status        TorrentStatus `json:"status"`
	DownloadSpeed int64         `json:"download_speed"`
	UploadSpeed   int64         `json:"upload_speed"`
	Seeders       int           `json:"seeders"`
	Added         string        `json:"added"`
	Provider      Provider      `json:"provider"`
	Links         []string      `json:"links,omitempty"`
	IsReady       bool          `json:"is_ready"`
}

type TorrentFile struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Selected bool   `json:"selected"`
}

type TorrentDetails struct {
	Torrent        UnifiedTorrent `json:"torrent"`
	Files          []TorrentFile  `json:"files"`
	CanSelectFiles bool           `json:"can_select_files"`
}

// AddedTorrent is what a provider echoes back after accepting a magnet.
type AddedTorrent struct {
	ID       string   `json:"id"`
	Hash     string   `json:"hash,omitempty"`
	Name     string   `json:"name,omitempty"`
	Provider Provider `json:"provider"`
}

type TorrentFilter struct {
	Offset     int  `json:"offset,omitempty"`
	Limit      int  `json:"limit,omitempty"`
	ActiveOnly bool `json:"active_only,omitempty"`
}

// CachedTorrent is a torrent the provider can serve immediately.
type CachedTorrent struct {
	Hash     string        `json:"hash"`
	Name     string        `json:"name,omitempty"`
	Size     int64         `json:"size"`
	Files    []TorrentFile `json:"files,omitempty"`
	Provider Provider      `json:"provider"`
}
