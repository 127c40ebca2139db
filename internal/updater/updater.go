// Package updater checks GitHub Releases for a newer trae-mem and can
// replace the running binary in place.
//
// The check is best-effort: the long-running commands (mcp, serve) run it
// in the background and only log the outcome. The server is never
// restarted automatically.
package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	githubRepo = "HendryAvila/trae-mem"
	binaryName = "trae-mem"

	// DefaultEndpoint is the GitHub API URL for the latest release.
	DefaultEndpoint = "https://api.github.com/repos/" + githubRepo + "/releases/latest"

	checkTimeout = 10 * time.Second
	// maxArchiveBytes bounds downloaded archives.
	maxArchiveBytes = 200 << 20
)

// ErrUpToDate is returned by SelfUpdate when no newer release exists.
var ErrUpToDate = errors.New("updater: already at latest version")

// Release is the subset of a GitHub release that the updater reads.
type Release struct {
	Version string
	URL     string
	Assets  map[string]string // asset name -> download URL
}

// Result describes the outcome of a version check.
type Result struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Client talks to the release endpoint.
type Client struct {
	Endpoint string
	HTTP     *http.Client
	Logger   *slog.Logger
	// GOOS and GOARCH select the release asset; they default to the
	// running platform.
	GOOS, GOARCH string
}

// New returns a Client for the public trae-mem releases.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Endpoint: DefaultEndpoint,
		HTTP:     &http.Client{Timeout: checkTimeout},
		Logger:   logger.With("component", "updater"),
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
	}
}

// Latest fetches the newest release.
func (c *Client) Latest(ctx context.Context, current string) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", binaryName+"/"+current)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: fetch release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: release endpoint returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("updater: read release: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("updater: release payload is not JSON")
	}

	doc := gjson.ParseBytes(data)
	rel := &Release{
		Version: normalizeVersion(doc.Get("tag_name").String()),
		URL:     doc.Get("html_url").String(),
		Assets:  map[string]string{},
	}
	doc.Get("assets").ForEach(func(_, a gjson.Result) bool {
		if name := a.Get("name").String(); name != "" {
			rel.Assets[name] = a.Get("browser_download_url").String()
		}
		return true
	})
	return rel, nil
}

// Check compares current against the latest release. Failures are logged
// at debug level and reported as "no update".
func (c *Client) Check(ctx context.Context, current string) *Result {
	res := &Result{CurrentVersion: normalizeVersion(current)}
	rel, err := c.Latest(ctx, current)
	if err != nil {
		c.Logger.Debug("version check failed", "error", err)
		return res
	}
	res.LatestVersion = rel.Version
	res.ReleaseURL = rel.URL
	res.UpdateAvailable = isNewer(res.CurrentVersion, res.LatestVersion)
	return res
}

// CheckInBackground runs Check without blocking and logs a notice when an
// update exists.
func (c *Client) CheckInBackground(ctx context.Context, current string) {
	go func() {
		res := c.Check(ctx, current)
		if res.UpdateAvailable {
			c.Logger.Info("update available",
				"current", res.CurrentVersion,
				"latest", res.LatestVersion,
				"url", res.ReleaseURL,
				"hint", "run 'trae-mem update'")
		}
	}()
}

// SelfUpdate replaces the running executable with the latest release and
// returns the version installed.
func (c *Client) SelfUpdate(ctx context.Context, current string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("updater: locate executable: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return "", fmt.Errorf("updater: resolve executable: %w", err)
	}
	return c.UpdateFile(ctx, current, exe)
}

// UpdateFile installs the latest release binary at target.
func (c *Client) UpdateFile(ctx context.Context, current, target string) (string, error) {
	rel, err := c.Latest(ctx, current)
	if err != nil {
		return "", err
	}
	if !isNewer(normalizeVersion(current), rel.Version) {
		return "", fmt.Errorf("%w (%s)", ErrUpToDate, normalizeVersion(current))
	}

	asset := assetName(rel.Version, c.GOOS, c.GOARCH)
	url, ok := rel.Assets[asset]
	if !ok || url == "" {
		return "", fmt.Errorf("updater: no release asset for %s/%s (want %s)", c.GOOS, c.GOARCH, asset)
	}

	archive, err := c.download(ctx, url)
	if err != nil {
		return "", err
	}
	bin, err := extractBinary(archive, asset)
	if err != nil {
		return "", err
	}
	if err := replaceFile(target, bin, c.GOOS); err != nil {
		return "", err
	}
	c.Logger.Info("binary updated", "path", target, "version", rel.Version)
	return rel.Version, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: build download: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, fmt.Errorf("updater: download: %w", err)
	}
	return data, nil
}

// replaceFile writes data next to target and renames it into place. On
// Windows the running binary is moved aside to .old first.
func replaceFile(target string, data []byte, goos string) error {
	tmp := target + ".new"
	if err := os.WriteFile(tmp, data, 0o755); err != nil {
		return fmt.Errorf("updater: write new binary: %w", err)
	}
	if goos == "windows" {
		old := target + ".old"
		_ = os.Remove(old)
		if err := os.Rename(target, old); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("updater: move current binary aside: %w", err)
		}
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("updater: replace binary: %w", err)
	}
	return nil
}

func extractBinary(archive []byte, asset string) ([]byte, error) {
	if strings.HasSuffix(asset, ".zip") {
		return extractFromZip(archive)
	}
	return extractFromTarGz(archive)
}

func isBinary(name string) bool {
	base := filepath.Base(name)
	return base == binaryName || base == binaryName+".exe"
}

func extractFromTarGz(archive []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("updater: open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("updater: read tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && isBinary(hdr.Name) {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("updater: %s not found in archive", binaryName)
}

func extractFromZip(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("updater: open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isBinary(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("updater: open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		return data, err
	}
	return nil, fmt.Errorf("updater: %s not found in archive", binaryName)
}

// assetName matches the GoReleaser archive name_template.
func assetName(version, goos, goarch string) string {
	ext := "tar.gz"
	if goos == "windows" {
		ext = "zip"
	}
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, goos, goarch, ext)
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether latest > current, comparing up to three numeric
// parts. "dev" builds never update.
func isNewer(current, latest string) bool {
	if current == "" || latest == "" || current == "dev" {
		return false
	}
	c, l := versionParts(current), versionParts(latest)
	for i := range c {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionParts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(v, ".", 3) {
		out[i] = leadingInt(p)
	}
	return out
}

// leadingInt parses the leading digits of s ("3rc1" -> 3).
func leadingInt(s string) int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
