package models

import "context"

// Client is implemented once per provider. Every method is a single round trip
// and returns *Error on failure.
type Client interface {
	Provider() Provider

	GetUser(ctx context.Context) (*UnifiedUser, error)

	GetTorrents(ctx context.Context, filter TorrentFilter) ([]UnifiedTorrent, error)
	GetTorrent(ctx context.Context, id string) (*TorrentDetails, error)
	SubmitMagnet(ctx context.Context, magnet string) (*AddedTorrent, error)
	DeleteTorrent(ctx context.Context, id string) error
	SelectFiles(ctx context.Context, id string, fileIDs []string) error

	UnrestrictLink(ctx context.Context, link string) (*UnrestrictedLink, error)
}

// The interfaces below cover features only some providers offer. Repository
// reports a validation error for a provider that lacks one.

// CacheChecker reports which torrents the provider already holds, so they can
// be added without waiting on peers.
type CacheChecker interface {
	CheckCached(ctx context.Context, hashes []string) ([]CachedTorrent, error)
}

// Restarter retries a torrent that failed on the provider.
type Restarter interface {
	RestartTorrent(ctx context.Context, id string) error
}

// LinkHistory exposes the links a user already unrestricted.
type LinkHistory interface {
	GetDownloads(ctx context.Context, filter TorrentFilter) ([]SavedLink, error)
	DeleteDownload(ctx context.Context, id string) error
}

// HostLister lists the file hosters the provider can unrestrict.
type HostLister interface {
	GetHosts(ctx context.Context) ([]Host, error)
}
