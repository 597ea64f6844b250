package models

type UnrestrictedLink struct {
	OriginalLink     string   `json:"original_link"`
	UnrestrictedLink string   `json:"unrestricted_link"`
	Filename         string   `json:"filename"`
	Filesize         int64    `json:"filesize"`
	Host             string   `json:"host"`
	Provider         Provider `json:"provider"`
}

// SavedLink is one entry of a provider's unrestricted link history. ID is the
// value DeleteDownload expects.
type SavedLink struct {
	ID        string   `json:"id"`
	Filename  string   `json:"filename"`
	Filesize  int64    `json:"filesize"`
	Link      string   `json:"link"`
	Download  string   `json:"download,omitempty"`
	Host      string   `json:"host"`
	Generated string   `json:"generated,omitempty"`
	Provider  Provider `json:"provider"`
}

type Host struct {
	Name     string   `json:"name"`
	Domains  []string `json:"domains"`
	Up       bool     `json:"up"`
	Provider Provider `json:"provider"`
}
