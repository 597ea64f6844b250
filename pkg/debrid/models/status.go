package models

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"time"
)

type TorrentStatus int

const (
	StatusUnknown TorrentStatus = iota
	StatusDownloading
	StatusQueued
	StatusCompleted
	StatusError
	StatusSeeding
	StatusPaused
)

var statusNames = map[TorrentStatus]string{
	StatusUnknown:     "unknown",
	StatusDownloading: "downloading",
	StatusQueued:      "queued",
	StatusCompleted:   "completed",
	StatusError:       "error",
	StatusSeeding:     "seeding",
	StatusPaused:      "paused",
}

func (s TorrentStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "unknown"
}

func (s TorrentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TorrentStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}

	*s = StatusUnknown
	for k, v := range statusNames {
		if v == strings.ToLower(name) {
			*s = k
		}
	}

	return nil
}

// Terminal reports whether no further progress is expected.
func (s TorrentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusSeeding
}

var parenthetical = regexp.MustCompile(`\s*\(.*?\)\s*`)

// CleanStatus lowercases a native status and drops notes such as "stalled (no seeds)".
func CleanStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(parenthetical.ReplaceAllString(status, "")))
}

// StatusTable maps cleaned native status strings to unified ones.
type StatusTable map[string]TorrentStatus

func (t StatusTable) Lookup(native string) TorrentStatus {
	if s, ok := t[CleanStatus(native)]; ok {
		return s
	}

	return StatusUnknown
}

func ClampProgress(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}

	return math.Min(p, 100)
}

func NonNegative[T int | int64 | float64](v T) T {
	if v < 0 {
		return 0
	}

	if f, ok := any(v).(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return 0
	}

	return v
}

// TimestampLayout is the RFC 3339 form Real-Debrid uses, with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatEpoch renders unix seconds as a UTC TimestampLayout string. Zero and
// negative values yield "".
func FormatEpoch(sec int64) string {
	if sec <= 0 {
		return ""
	}

	return time.Unix(sec, 0).UTC().Format(TimestampLayout)
}
