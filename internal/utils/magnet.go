package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

const magnetPrefix = "magnet:"

type Magnet struct {
	Link     string   `json:"link"`
	InfoHash string   `json:"info_hash"`
	Name     string   `json:"name,omitempty"`
	Size     int64    `json:"size,omitempty"`
	Trackers []string `json:"trackers,omitempty"`
}

// IsMagnet reports whether s starts with the literal magnet: scheme. Only the
// scheme is checked.
func IsMagnet(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), magnetPrefix)
}

// ParseMagnet decodes a BitTorrent v1 magnet URI. The info hash is lowercased.
func ParseMagnet(link string) (*Magnet, error) {
	link = strings.TrimSpace(link)
	if !IsMagnet(link) {
		return nil, fmt.Errorf("not a magnet link")
	}

	spec, err := metainfo.ParseMagnetUri(link)
	if err != nil {
		return nil, fmt.Errorf("parse magnet: %w", err)
	}

	m := &Magnet{
		Link:     link,
		InfoHash: strings.ToLower(spec.InfoHash.HexString()),
		Name:     spec.DisplayName,
		Trackers: spec.Trackers,
	}

	if xl := spec.Params.Get("xl"); xl != "" {
		if size, err := strconv.ParseInt(xl, 10, 64); err == nil && size > 0 {
			m.Size = size
		}
	}

	return m, nil
}

// InfoHash returns the lowercase hex v1 info hash named by s, which is either
// a magnet URI or a bare 40 character hex hash.
func InfoHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if IsMagnet(s) {
		m, err := ParseMagnet(s)
		if err != nil {
			return "", err
		}
		return m.InfoHash, nil
	}

	var h metainfo.Hash
	if err := h.FromHexString(s); err != nil {
		return "", fmt.Errorf("invalid info hash %q: %w", s, err)
	}

	return h.HexString(), nil
}
