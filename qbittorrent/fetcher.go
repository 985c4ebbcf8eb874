package qbittorrent

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"strings"

	"github.com/blang/semver"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/s0up4200/qbitsync/maindata"
)

const (
	loginPath         = "/api/v2/auth/login"
	mainDataPath      = "/api/v2/sync/maindata"
	webAPIVersionPath = "/api/v2/app/webapiVersion"
)

// SyncFetcher retrieves raw sync payloads. It returns the response body
// undecoded so the maindata package can see the exact wire shape, which the
// typed go-qbittorrent client would discard.
type SyncFetcher struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewSyncFetcher creates a fetcher for the qBittorrent instance at baseURL.
func NewSyncFetcher(baseURL string, logger zerolog.Logger, opts ...Option) *SyncFetcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", o.userAgent).
		// qBittorrent's CSRF protection compares Referer with its own host
		SetHeader("Referer", baseURL)

	if !o.verifyCert {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	return &SyncFetcher{
		client: client,
		logger: logger,
	}
}

// Login authenticates once; the SID cookie is kept by the client's cookie jar.
// Sessions are not refreshed: an expired session surfaces as ErrUnauthorized
// from Fetch.
func (f *SyncFetcher) Login(ctx context.Context, username, password string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"password": password,
		}).
		Post(loginPath)
	if err != nil {
		return fmt.Errorf("%w: login request: %w", ErrConnectionFailed, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	// qBittorrent answers 200 with "Fails." for bad credentials
	if body := strings.TrimSpace(resp.String()); body != "Ok." {
		return fmt.Errorf("%w: %s", ErrLoginFailed, body)
	}

	f.logger.Debug().Str("user", username).Msg("Logged in to qBittorrent")
	return nil
}

// Fetch requests the changes since rid; rid 0 asks for the full state.
func (f *SyncFetcher) Fetch(ctx context.Context, rid int64) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("rid", strconv.FormatInt(rid, 10)).
		Get(mainDataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: maindata request: %w", ErrConnectionFailed, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}

	body := resp.Body()
	f.logger.Trace().
		Int64("rid", rid).
		Int("bytes", len(body)).
		Msg("Fetched maindata")
	return body, nil
}

// WebAPIVersion returns the Web API version reported by the server. It uses
// the session opened by Login.
func (f *SyncFetcher) WebAPIVersion(ctx context.Context) (semver.Version, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(webAPIVersionPath)
	if err != nil {
		return semver.Version{}, fmt.Errorf("%w: version request: %w", ErrConnectionFailed, err)
	}
	if err := mapHTTPError(resp); err != nil {
		return semver.Version{}, err
	}

	version, err := ParseAPIVersion(resp.String())
	if err != nil {
		return semver.Version{}, err
	}

	f.logger.Debug().Str("webapi", version.String()).Msg("Detected qBittorrent Web API version")
	return version, nil
}

// ExpectedCategoriesVariant returns the categories encoding the server's sync
// payloads should use, based on its Web API version.
func (f *SyncFetcher) ExpectedCategoriesVariant(ctx context.Context) (maindata.SchemaVariant, error) {
	version, err := f.WebAPIVersion(ctx)
	if err != nil {
		return maindata.VariantAbsent, err
	}
	return CategoriesVariantFor(version), nil
}
