package models

import (
	"fmt"
	"strings"

	"github.com/dylanmazurek/debridify/internal/request"
)

type Provider string

const (
	RealDebrid Provider = "realdebrid"
	TorBox     Provider = "torbox"
	AllDebrid  Provider = "alldebrid"
)

type ProviderInfo struct {
	ID          Provider         `json:"id"`
	DisplayName string           `json:"display_name"`
	Description string           `json:"description"`
	BaseURL     string           `json:"base_url"`
	AuthMode    request.AuthMode `json:"-"`
	AuthParam   string           `json:"-"`
}

var registry = []ProviderInfo{
	{
		ID:          RealDebrid,
		DisplayName: "Real-Debrid",
		Description: "Premium link generator and torrent downloader",
		BaseURL:     "https://api.real-debrid.com/rest/1.0",
		AuthMode:    request.AuthBearerHeader,
	},
	{
		ID:          TorBox,
		DisplayName: "TorBox",
		Description: "Fast and reliable torrent downloader",
		BaseURL:     "https://api.torbox.app/v1/api",
		AuthMode:    request.AuthQueryParam,
		AuthParam:   "api_key",
	},
	{
		ID:          AllDebrid,
		DisplayName: "AllDebrid",
		Description: "Multi-hoster premium link generator",
		BaseURL:     "https://api.alldebrid.com/v4",
		AuthMode:    request.AuthBearerHeader,
	},
}

// Providers returns every supported provider in display order.
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, len(registry))
	copy(out, registry)
	return out
}

func (p Provider) Info() ProviderInfo {
	for _, info := range registry {
		if info.ID == p {
			return info
		}
	}

	return ProviderInfo{ID: p, DisplayName: string(p)}
}

func (p Provider) String() string {
	return string(p)
}

func (p Provider) DisplayName() string {
	return p.Info().DisplayName
}

func (p Provider) Valid() bool {
	for _, info := range registry {
		if info.ID == p {
			return true
		}
	}

	return false
}

// Authenticator builds the credential injector matching the provider's auth mode.
func (p Provider) Authenticator(cred request.CredentialFunc) *request.Authenticator {
	info := p.Info()
	return &request.Authenticator{
		Mode:       info.AuthMode,
		Param:      info.AuthParam,
		Credential: cred,
	}
}

// ParseProvider accepts identifiers and display names, ignoring case, spaces and dashes.
func ParseProvider(s string) (Provider, error) {
	key := normalizeName(s)
	for _, info := range registry {
		if key == normalizeName(string(info.ID)) || key == normalizeName(info.DisplayName) {
			return info.ID, nil
		}
	}

	return "", fmt.Errorf("unknown provider %q", s)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, " ", "")
}
