package models

type User struct {
	Id         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Points     int    `json:"points"`
	Locale     string `json:"locale"`
	Avatar     string `json:"avatar"`
	Type       string `json:"type"`
	Premium    int64  `json:"premium"` // seconds of premium left
	Expiration string `json:"expiration"`
}

type File struct {
	Id       int    `json:"id"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Selected int    `json:"selected"`
}

type Torrent struct {
	Id               string   `json:"id"`
	Filename         string   `json:"filename"`
	OriginalFilename string   `json:"original_filename"`
	Hash             string   `json:"hash"`
	Bytes            int64    `json:"bytes"`
	OriginalBytes    int64    `json:"original_bytes"`
	Host             string   `json:"host"`
	Split            int      `json:"split"`
	Progress         float64  `json:"progress"`
	Status           string   `json:"status"`
	Added            string   `json:"added"`
	Files            []File   `json:"files,omitempty"`
	Links            []string `json:"links"`
	Ended            string   `json:"ended,omitempty"`
	Speed            int64    `json:"speed,omitempty"`
	Seeders          int      `json:"seeders,omitempty"`
}

type AddMagnetResponse struct {
	Id  string `json:"id"`
	Uri string `json:"uri"`
}

type UnrestrictResponse struct {
	Id         string `json:"id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	Filesize   int64  `json:"filesize"`
	Link       string `json:"link"`
	Host       string `json:"host"`
	Chunks     int    `json:"chunks"`
	Crc        int    `json:"crc"`
	Download   string `json:"download"`
	Streamable int    `json:"streamable"`
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// Download is an entry of /downloads, the unrestricted link history.
type Download struct {
	Id        string `json:"id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	Filesize  int64  `json:"filesize"`
	Link      string `json:"link"`
	Host      string `json:"host"`
	Chunks    int    `json:"chunks"`
	Download  string `json:"download"`
	Generated string `json:"generated"`
}
