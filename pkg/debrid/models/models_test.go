package models

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/dylanmazurek/debridify/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input string
		want  Provider
	}{
		{"realdebrid", RealDebrid},
		{"Real-Debrid", RealDebrid},
		{"REAL_DEBRID", RealDebrid},
		{"torbox", TorBox},
		{" TorBox ", TorBox},
		{"AllDebrid", AllDebrid},
		{"all debrid", AllDebrid},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseProvider("premiumize")
	assert.Error(t, err)
}

func TestProviderRegistry(t *testing.T) {
	infos := Providers()
	require.Len(t, infos, 3)

	assert.Equal(t, request.AuthBearerHeader, RealDebrid.Info().AuthMode)
	assert.Equal(t, request.AuthBearerHeader, AllDebrid.Info().AuthMode)
	assert.Equal(t, request.AuthQueryParam, TorBox.Info().AuthMode)
	assert.Equal(t, "api_key", TorBox.Info().AuthParam)

	assert.Equal(t, "https://api.real-debrid.com/rest/1.0", RealDebrid.Info().BaseURL)
	assert.Equal(t, "https://api.torbox.app/v1/api", TorBox.Info().BaseURL)
	assert.Equal(t, "https://api.alldebrid.com/v4", AllDebrid.Info().BaseURL)

	assert.True(t, TorBox.Valid())
	assert.False(t, Provider("putio").Valid())

	infos[0].DisplayName = "changed"
	assert.Equal(t, "Real-Debrid", RealDebrid.DisplayName())
}

func TestStatusTable_Lookup(t *testing.T) {
	table := StatusTable{
		"downloading": StatusDownloading,
		"stalled":     StatusDownloading,
	}

	assert.Equal(t, StatusDownloading, table.Lookup("Downloading"))
	assert.Equal(t, StatusDownloading, table.Lookup("  downloading "))
	assert.Equal(t, StatusDownloading, table.Lookup("stalled (no seeds)"))
	assert.Equal(t, StatusUnknown, table.Lookup("magic"))
	assert.Equal(t, StatusUnknown, table.Lookup(""))
}

func TestTorrentStatus_JSON(t *testing.T) {
	b, err := json.Marshal(StatusSeeding)
	require.NoError(t, err)
	assert.Equal(t, `"seeding"`, string(b))

	var s TorrentStatus
	require.NoError(t, json.Unmarshal([]byte(`"Completed"`), &s))
	assert.Equal(t, StatusCompleted, s)

	require.NoError(t, json.Unmarshal([]byte(`"bogus"`), &s))
	assert.Equal(t, StatusUnknown, s)

	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusQueued.Terminal())
}

func TestClampProgress(t *testing.T) {
	assert.Equal(t, 0.0, ClampProgress(-5))
	assert.Equal(t, 100.0, ClampProgress(250))
	assert.Equal(t, 42.5, ClampProgress(42.5))
	assert.Equal(t, 0.0, ClampProgress(math.NaN()))
	assert.Equal(t, 0.0, ClampProgress(math.Inf(1)))
}

func TestNonNegative(t *testing.T) {
	assert.Equal(t, int64(0), NonNegative(int64(-1)))
	assert.Equal(t, 7, NonNegative(7))
	assert.Equal(t, 0.0, NonNegative(math.NaN()))
	assert.Equal(t, 0.0, NonNegative(math.Inf(-1)))
}

func TestFormatEpoch(t *testing.T) {
	assert.Equal(t, "2023-11-14T22:13:20.000Z", FormatEpoch(1700000000))
	assert.Equal(t, "", FormatEpoch(0))
	assert.Equal(t, "", FormatEpoch(-1))

	parsed, err := time.Parse(time.RFC3339, FormatEpoch(1700000000))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), parsed.Unix())
}

func TestError_Message(t *testing.T) {
	e := &Error{Kind: KindHTTP, Provider: RealDebrid, Op: "delete", StatusCode: 404, Message: "unknown_ressource"}
	assert.Equal(t, "realdebrid delete: unknown_ressource", e.Error())
	assert.Equal(t, "unknown_ressource", Message(e))

	e = &Error{Kind: KindHTTP, Provider: TorBox, Op: "user", StatusCode: 503}
	assert.Equal(t, "HTTP 503", Message(e))

	e = &Error{Kind: KindTransport, Provider: AllDebrid, Err: errors.New("dial tcp: i/o timeout")}
	assert.Equal(t, "network error, check your connection", Message(e))

	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}

func TestError_Is(t *testing.T) {
	cause := errors.New("boom")
	e := &Error{Kind: KindTransport, Err: cause}

	assert.ErrorIs(t, e, ErrTransport)
	assert.ErrorIs(t, e, cause)
	assert.NotErrorIs(t, e, ErrHTTP)

	wrapped := errors.Join(errors.New("context"), NewValidationError(TorBox, "add", "bad magnet"))
	assert.ErrorIs(t, wrapped, ErrValidation)
}

func TestClassify(t *testing.T) {
	parse := func(body []byte) (string, string) {
		var env struct {
			Error     string `json:"error"`
			ErrorCode int    `json:"error_code"`
		}
		_ = json.Unmarshal(body, &env)
		return "7", env.Error
	}

	httpErr := &request.HTTPError{StatusCode: http.StatusNotFound, Body: []byte(`{"error":"unknown_ressource","error_code":7}`)}
	e := Classify(RealDebrid, "delete", httpErr, parse)
	require.NotNil(t, e)
	assert.Equal(t, KindHTTP, e.Kind)
	assert.Equal(t, 404, e.StatusCode)
	assert.Equal(t, "7", e.Code)
	assert.Equal(t, "unknown_ressource", e.Message)
	assert.ErrorIs(t, e, ErrHTTP)

	e = Classify(RealDebrid, "user", &request.TransportError{Method: "GET", URL: "x", Err: errors.New("refused")}, parse)
	assert.Equal(t, KindTransport, e.Kind)
	assert.ErrorIs(t, e, ErrTransport)

	existing := NewEmptyPayloadError("", "", nil)
	e = Classify(TorBox, "list", existing, parse)
	assert.Same(t, existing, e)
	assert.Equal(t, TorBox, e.Provider)
	assert.Equal(t, "list", e.Op)

	assert.Nil(t, Classify(TorBox, "list", nil, parse))
}

func TestError_Unauthorized(t *testing.T) {
	assert.True(t, (&Error{Kind: KindHTTP, StatusCode: 401}).Unauthorized())
	assert.True(t, (&Error{Kind: KindHTTP, StatusCode: 403}).Unauthorized())
	assert.False(t, (&Error{Kind: KindHTTP, StatusCode: 404}).Unauthorized())
	assert.False(t, (&Error{Kind: KindTransport}).Unauthorized())
}
