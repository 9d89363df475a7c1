// Package credentials resolves Google Cloud credentials for the Vision and
// Sheets clients.
//
// Credentials are looked up through a Provider so callers decide where they
// come from: inline JSON (GOOGLE_CREDENTIALS), a service account file
// (GOOGLE_APPLICATION_CREDENTIALS), Application Default Credentials, or a
// value built elsewhere.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
)

// ErrNoCredentials is returned when a provider has nothing to offer.
var ErrNoCredentials = errors.New("no Google Cloud credentials available")

// Provider yields scoped credentials.
type Provider interface {
	Credentials(ctx context.Context) (*google.Credentials, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*google.Credentials, error)

// Credentials calls f.
func (f ProviderFunc) Credentials(ctx context.Context) (*google.Credentials, error) {
	return f(ctx)
}

// Default discovers Application Default Credentials from the environment,
// the gcloud config directory or the metadata server.
type Default struct {
	Scopes []string
}

func (d Default) Credentials(ctx context.Context) (*google.Credentials, error) {
	creds, err := google.FindDefaultCredentials(ctx, d.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}
	return creds, nil
}

// JSON builds credentials from an inline service account or authorized user document.
type JSON struct {
	Data   []byte
	Scopes []string
}

func (j JSON) Credentials(ctx context.Context) (*google.Credentials, error) {
	if len(j.Data) == 0 {
		return nil, ErrNoCredentials
	}
	creds, err := google.CredentialsFromJSON(ctx, j.Data, j.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials JSON: %w", err)
	}
	return creds, nil
}

// File reads a credentials document from disk.
type File struct {
	Path   string
	Scopes []string
}

func (f File) Credentials(ctx context.Context) (*google.Credentials, error) {
	if f.Path == "" {
		return nil, ErrNoCredentials
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", f.Path, err)
	}
	return JSON{Data: data, Scopes: f.Scopes}.Credentials(ctx)
}

// Static hands out credentials that were obtained elsewhere.
type Static struct {
	Creds *google.Credentials
}

func (s Static) Credentials(context.Context) (*google.Credentials, error) {
	if s.Creds == nil {
		return nil, ErrNoCredentials
	}
	return s.Creds, nil
}

// FromEnvironment picks a provider the same way the CLI documents it:
// inline JSON first, then a credentials file, then Application Default
// Credentials.
func FromEnvironment(inlineJSON, filePath string, scopes ...string) Provider {
	switch {
	case inlineJSON != "":
		return JSON{Data: []byte(inlineJSON), Scopes: scopes}
	case filePath != "":
		return File{Path: filePath, Scopes: scopes}
	default:
		return Default{Scopes: scopes}
	}
}
