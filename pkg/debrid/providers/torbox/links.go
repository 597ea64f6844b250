package torbox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	debridModels "github.com/dylanmazurek/debridify/pkg/debrid/models"
)

const linkScheme = "torbox"

// FileLink is the placeholder exposed for finished files; UnrestrictLink resolves it.
func FileLink(torrentID, fileID int) string {
	return fmt.Sprintf("%s://%d/%d", linkScheme, torrentID, fileID)
}

// ParseFileLink splits a torbox://{torrent_id}/{file_id} link.
func ParseFileLink(link string) (torrentID, fileID string, err error) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != linkScheme {
		return "", "", fmt.Errorf("not a %s file link", linkScheme)
	}

	torrentID = u.Host
	fileID = strings.Trim(u.Path, "/")
	if _, err := strconv.Atoi(torrentID); err != nil {
		return "", "", fmt.Errorf("invalid torrent id %q", torrentID)
	}
	if _, err := strconv.Atoi(fileID); err != nil {
		return "", "", fmt.Errorf("invalid file id %q", fileID)
	}

	return torrentID, fileID, nil
}

// RequestDownload asks TorBox for a direct URL to one file of a finished torrent.
func (tb *Torbox) RequestDownload(ctx context.Context, torrentID, fileID string) (string, error) {
	token, err := tb.credential(ctx)
	if err != nil {
		return "", debridModels.Classify(debridModels.TorBox, "unrestrict", err, nil)
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("torrent_id", torrentID)
	query.Set("file_id", fileID)

	resp, err := tb.do(ctx, "unrestrict", http.MethodGet, "torrents/requestdl", query, nil, "")
	if err != nil {
		tb.logger.Error().
			Err(err).
			Str("torrent_id", torrentID).
			Str("file_id", fileID).
			Msg("Failed to request download link")

		return "", err
	}

	res, err := decodeEnvelope[string]("unrestrict", resp, true)
	if err != nil {
		return "", err
	}

	if *res.Data == "" {
		return "", debridModels.NewEmptyPayloadError(debridModels.TorBox, "unrestrict", nil)
	}

	return *res.Data, nil
}

func (tb *Torbox) UnrestrictLink(ctx context.Context, link string) (*debridModels.UnrestrictedLink, error) {
	torrentID, fileID, err := ParseFileLink(link)
	if err != nil {
		return nil, debridModels.NewValidationError(debridModels.TorBox, "unrestrict",
			"TorBox only resolves links of the form %s://<torrent_id>/<file_id>", linkScheme)
	}

	download, err := tb.RequestDownload(ctx, torrentID, fileID)
	if err != nil {
		return nil, err
	}

	return ToUnrestrictedLink(link, download), nil
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}

	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}

	return name
}
