package pypi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/parcyl/pkg/cache"
	"github.com/matzehuels/parcyl/pkg/integrations"
	"github.com/matzehuels/parcyl/pkg/version"
)

// DefaultBaseURL is the PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

// PackageInfo holds metadata for a Python package from PyPI.
//
// Releases lists every version that has at least one non-yanked file, sorted
// ascending by version precedence. RequiresDist is copied verbatim from the
// API, markers included; callers decide which entries apply.
type PackageInfo struct {
	Name         string   // Display name as published (e.g., "Flask")
	Version      string   // Version the info block describes
	Summary      string   // Short package description (may be empty)
	RequiresDist []string // PEP 508 requirement strings (may be nil)
	Releases     []string // Installable release versions (nil for release lookups)
}

// Client provides access to the PyPI JSON API.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
// A nil cache disables caching. Responses are kept for cacheTTL.
func NewClient(c cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  integrations.NewClient(c, "pypi:", cacheTTL, nil),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at a different index, such as a mirror.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// FetchPackage retrieves metadata of the newest release of pkg together with
// its release list. The name is normalized before the request.
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
// Missing packages fail with [integrations.ErrNotFound].
func (c *Client) FetchPackage(ctx context.Context, pkg string, refresh bool) (*PackageInfo, error) {
	pkg = integrations.NormalizePkgName(pkg)

	var info PackageInfo
	err := c.Cached(ctx, pkg, refresh, &info, func() error {
		return c.fetch(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, pkg), pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// FetchRelease retrieves metadata of one specific release. Release
// responses never change, so they are cached under their own key.
func (c *Client) FetchRelease(ctx context.Context, pkg, ver string, refresh bool) (*PackageInfo, error) {
	pkg = integrations.NormalizePkgName(pkg)

	var info PackageInfo
	err := c.Cached(ctx, cache.Key("release", pkg, ver), refresh, &info, func() error {
		return c.fetch(ctx, fmt.Sprintf("%s/%s/%s/json", c.baseURL, pkg, ver), pkg, &info)
	})
	if err != nil {
		return nil, err
	}
	info.Releases = nil
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, url, pkg string, info *PackageInfo) error {
	var data apiResponse
	if err := c.Get(ctx, url, &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}

	*info = PackageInfo{
		Name:         data.Info.Name,
		Version:      data.Info.Version,
		Summary:      data.Info.Summary,
		RequiresDist: data.Info.RequiresDist,
		Releases:     installable(data.Releases),
	}
	return nil
}

// installable returns the versions with at least one file that is not
// yanked. Versions that fail to parse are dropped.
func installable(releases map[string][]apiFile) []string {
	var out []string
	for v, files := range releases {
		if !version.Valid(v) {
			continue
		}
		for _, f := range files {
			if !f.Yanked {
				out = append(out, v)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return version.Compare(out[i], out[j]) < 0 })
	return out
}

type apiResponse struct {
	Info     apiInfo              `json:"info"`
	Releases map[string][]apiFile `json:"releases"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	RequiresDist []string `json:"requires_dist"`
}

type apiFile struct {
	Filename string `json:"filename"`
	Yanked   bool   `json:"yanked"`
}
