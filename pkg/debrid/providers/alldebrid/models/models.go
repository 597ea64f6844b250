package models

import (
	"bytes"
	"encoding/json"
)

// Response is the AllDebrid envelope: status is "success" or "error".
type Response[T any] struct {
	Status string    `json:"status"`
	Data   *T        `json:"data"`
	Error  *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type User struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	IsPremium      bool   `json:"isPremium"`
	IsSubscribed   bool   `json:"isSubscribed"`
	IsTrial        bool   `json:"isTrial"`
	PremiumUntil   int64  `json:"premiumUntil"`
	Lang           string `json:"lang"`
	PreferedDomain string `json:"preferedDomain"`
}

type UserData struct {
	User User `json:"user"`
}

type Link struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type Magnet struct {
	Id             int     `json:"id"`
	Filename       string  `json:"filename"`
	Size           int64   `json:"size"`
	Hash           string  `json:"hash"`
	Ready          bool    `json:"ready"`
	Status         string  `json:"status"`
	StatusCode     int     `json:"statusCode"`
	Downloaded     int64   `json:"downloaded"`
	Uploaded       int64   `json:"uploaded"`
	Seeders        int     `json:"seeders"`
	DownloadSpeed  float64 `json:"downloadSpeed"`
	UploadSpeed    float64 `json:"uploadSpeed"`
	UploadDate     int64   `json:"uploadDate"`
	CompletionDate int64   `json:"completionDate"`
	Links          []Link  `json:"links"`
}

// Magnets holds magnet/status data: an array for listings, a single object when an id is requested.
type Magnets []Magnet

func (m *Magnets) UnmarshalJSON(d []byte) error {
	d = bytes.TrimSpace(d)
	if bytes.Equal(d, []byte("null")) {
		*m = nil
		return nil
	}

	if len(d) > 0 && d[0] == '{' {
		var single Magnet
		if err := json.Unmarshal(d, &single); err != nil {
			return err
		}
		*m = Magnets{single}
		return nil
	}

	var list []Magnet
	if err := json.Unmarshal(d, &list); err != nil {
		return err
	}
	*m = list

	return nil
}

type MagnetsData struct {
	Magnets Magnets `json:"magnets"`
}

type UploadedMagnet struct {
	Magnet string    `json:"magnet"`
	Hash   string    `json:"hash"`
	Name   string    `json:"name"`
	Size   int64     `json:"size"`
	Ready  bool      `json:"ready"`
	Id     int       `json:"id"`
	Error  *APIError `json:"error,omitempty"`
}

type UploadData struct {
	Magnets []UploadedMagnet `json:"magnets"`
}

type MessageData struct {
	Message string `json:"message"`
}

type UnlockData struct {
	Link     string `json:"link"`
	Host     string `json:"host"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Id       string `json:"id"`
}

type SavedLink struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Host     string `json:"host"`
	Size     int64  `json:"size"`
	Date     int64  `json:"date"`
}

type LinksData struct {
	Links []SavedLink `json:"links"`
}

// HostStatus is sent as a boolean or as 1/0.
type HostStatus bool

func (s *HostStatus) UnmarshalJSON(d []byte) error {
	d = bytes.TrimSpace(d)
	switch string(d) {
	case "true", "1":
		*s = true
	case "false", "0", "null", "-1":
		*s = false
	default:
		var n float64
		if err := json.Unmarshal(d, &n); err != nil {
			return err
		}
		*s = n > 0
	}

	return nil
}

type Host struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Domains []string   `json:"domains"`
	Status  HostStatus `json:"status"`
}

type HostsData struct {
	Hosts map[string]Host `json:"hosts"`
}
