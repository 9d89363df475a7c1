package ocr

import (
	"context"
	"net"
	"net/http"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
)

// dialVision builds a Vision client over the configured transport.
func dialVision(ctx context.Context, cfg Config, creds *google.Credentials) (ImageAnnotator, error) {
	opts := []option.ClientOption{
		option.WithUserAgent(cfg.UserAgent),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	if cfg.Transport == TransportGRPC {
		opts = append(opts,
			option.WithCredentials(creds),
			option.WithGRPCDialOption(grpc.WithConnectParams(grpc.ConnectParams{
				Backoff:           backoff.DefaultConfig,
				MinConnectTimeout: cfg.ConnectTimeout,
			})),
		)
		client, err := vision.NewImageAnnotatorClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	opts = append(opts, option.WithHTTPClient(newHTTPClient(creds.TokenSource, cfg)))
	client, err := vision.NewImageAnnotatorRESTClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newHTTPClient returns an authorized client for the REST transport.
// Responses are requested uncompressed.
func newHTTPClient(ts oauth2.TokenSource, cfg Config) *http.Client {
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           newDialer(cfg).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, ts),
			Base:   &userAgentTransport{userAgent: cfg.UserAgent, base: base},
		},
	}
}

// newDialer bounds connection setup by the connect timeout.
func newDialer(cfg Config) *net.Dialer {
	return &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
}

// userAgentTransport sets the User-Agent header, which option.WithUserAgent
// cannot do once option.WithHTTPClient is in use.
type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
