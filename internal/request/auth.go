package request

import (
	"context"
	"fmt"
	"net/http"
)

type AuthMode int

const (
	// AuthBearerHeader sends "Authorization: Bearer <key>".
	AuthBearerHeader AuthMode = iota
	// AuthQueryParam appends the key as a query parameter.
	AuthQueryParam
)

func (m AuthMode) String() string {
	switch m {
	case AuthBearerHeader:
		return "bearer"
	case AuthQueryParam:
		return "query"
	default:
		return fmt.Sprintf("AuthMode(%d)", int(m))
	}
}

// CredentialFunc resolves the API key for a request. An empty key with a nil
// error means no credential is stored and the request goes out unmodified.
type CredentialFunc func(ctx context.Context) (string, error)

type Authenticator struct {
	Mode       AuthMode
	Param      string // query parameter name for AuthQueryParam
	Credential CredentialFunc
}

// Apply resolves the credential with the request context and attaches it.
func (a *Authenticator) Apply(req *http.Request) error {
	if a == nil || a.Credential == nil {
		return nil
	}

	key, err := a.Credential(req.Context())
	if err != nil {
		return fmt.Errorf("credential lookup: %w", err)
	}

	if key == "" {
		return nil
	}

	switch a.Mode {
	case AuthQueryParam:
		param := a.Param
		if param == "" {
			param = "api_key"
		}

		q := req.URL.Query()
		q.Set(param, key)
		req.URL.RawQuery = q.Encode()
	default:
		req.Header.Set("Authorization", "Bearer "+key)
	}

	return nil
}

// StaticCredential always yields key.
func StaticCredential(key string) CredentialFunc {
	return func(context.Context) (string, error) {
		return key, nil
	}
}
