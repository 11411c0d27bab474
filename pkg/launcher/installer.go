package launcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
)

// Installer defaults.
const (
	DefaultRepo           = "Franzferdinan51/MyCodingHelper"
	DefaultAPIBaseURL     = "https://api.github.com"
	DefaultArchiveBaseURL = "https://github.com"
	UserAgent             = "MyCodeHelper-Launcher"
	HomeDirName           = ".mycodehelper"
)

// ErrNotInstalled is returned when an operation needs a downloaded app.
var ErrNotInstalled = errors.New("MyCodeHelper not installed; run the launcher without flags first")

// GitHubRelease is the subset of the releases API the installer reads.
type GitHubRelease struct {
	TagName    string `json:"tag_name"`
	ZipballURL string `json:"zipball_url"`
}

// InstallerConfig holds configuration options for the download launcher.
type InstallerConfig struct {
	// Repo is the GitHub owner/name to download.
	Repo string
	// Home is the launcher directory (default: ~/.mycodehelper).
	Home string

	APIBaseURL     string
	ArchiveBaseURL string
	HTTPClient     *http.Client
	Runner         Runner
	Stdio          Stdio
	Logger         loggerpkg.Logger
}

// Installer downloads, configures and runs the Node.js distribution.
type Installer struct {
	config InstallerConfig
}

// DefaultHome returns ~/.mycodehelper.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, HomeDirName), nil
}

// NewInstaller creates an installer, filling zero values with defaults.
func NewInstaller(cfg InstallerConfig) (*Installer, error) {
	if cfg.Repo == "" {
		cfg.Repo = DefaultRepo
	}
	if cfg.Home == "" {
		home, err := DefaultHome()
		if err != nil {
			return nil, err
		}
		cfg.Home = home
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.ArchiveBaseURL == "" {
		cfg.ArchiveBaseURL = DefaultArchiveBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{}
	}
	if cfg.Stdio.Out == nil {
		cfg.Stdio.Out = io.Discard
	}
	if cfg.Stdio.Err == nil {
		cfg.Stdio.Err = cfg.Stdio.Out
	}
	if cfg.Stdio.In == nil {
		cfg.Stdio.In = strings.NewReader("")
	}
	if cfg.Logger == nil {
		cfg.Logger = loggerpkg.NopLogger{}
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.ArchiveBaseURL = strings.TrimRight(cfg.ArchiveBaseURL, "/")
	return &Installer{config: cfg}, nil
}

// Home is the launcher directory.
func (i *Installer) Home() string { return i.config.Home }

// AppDir is where the downloaded app is extracted.
func (i *Installer) AppDir() string { return filepath.Join(i.config.Home, "app") }

// ScriptPath is the bundled CLI entry point inside AppDir.
func (i *Installer) ScriptPath() string {
	return filepath.Join(i.AppDir(), "bundle", "mycodehelper.js")
}

// EnvPath is the .env file the app reads.
func (i *Installer) EnvPath() string { return filepath.Join(i.AppDir(), ".env") }

// Installed reports whether the bundled CLI is present.
func (i *Installer) Installed() bool {
	_, err := os.Stat(i.ScriptPath())
	return err == nil
}

// Setup downloads and extracts the app unless it is already installed.
func (i *Installer) Setup(ctx context.Context) error {
	if i.Installed() {
		i.printf("MyCodeHelper already installed\n")
		return nil
	}
	i.printf("Setting up MyCodeHelper...\n")

	if err := os.MkdirAll(i.config.Home, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", i.config.Home, err)
	}
	if err := i.ResetApp(); err != nil {
		return err
	}
	if err := os.MkdirAll(i.AppDir(), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", i.AppDir(), err)
	}

	zipURL, err := i.latestReleaseZip(ctx)
	if err != nil {
		loggerpkg.Info(i.config.Logger, "release lookup failed, using main branch", map[string]any{"error": err.Error()})
		zipURL = i.branchZipURL()
	}

	zipPath := filepath.Join(i.config.Home, "mycodehelper.zip")
	defer os.Remove(zipPath)
	i.printf("Downloading from GitHub...\n")
	if err := i.download(ctx, zipURL, zipPath); err != nil {
		return err
	}

	i.printf("Extracting files...\n")
	n, err := extractZip(zipPath, i.AppDir())
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	loggerpkg.Info(i.config.Logger, "archive extracted", map[string]any{"files": n, "dir": i.AppDir()})
	i.printf("MyCodeHelper setup complete\n")
	return nil
}

func (i *Installer) latestReleaseZip(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", i.config.APIBaseURL, i.config.Repo)
	resp, err := i.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch release info: HTTP %d", resp.StatusCode)
	}
	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("parse release info: %w", err)
	}
	if release.ZipballURL == "" {
		return "", errors.New("release has no zipball_url")
	}
	return release.ZipballURL, nil
}

func (i *Installer) branchZipURL() string {
	return fmt.Sprintf("%s/%s/archive/refs/heads/main.zip", i.config.ArchiveBaseURL, i.config.Repo)
}

func (i *Installer) download(ctx context.Context, url, dest string) error {
	resp, err := i.get(ctx, url)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("save download: %w", err)
	}
	return out.Close()
}

func (i *Installer) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	return i.config.HTTPClient.Do(req)
}

// InstallDependencies runs npm install in AppDir unless node_modules exists.
func (i *Installer) InstallDependencies(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(i.AppDir(), "package.json")); err != nil {
		return errors.New("package.json not found")
	}
	if _, err := os.Stat(filepath.Join(i.AppDir(), "node_modules")); err == nil {
		i.printf("Dependencies already installed\n")
		return nil
	}

	i.printf("Installing dependencies...\n")
	res := i.config.Runner.Output(ctx, Command{Name: "npm", Args: []string{"install"}, Dir: i.AppDir()})
	loggerpkg.Info(i.config.Logger, "npm install finished", res)
	if res.Err != nil || res.ExitCode != 0 {
		return fmt.Errorf("npm install failed: %s", strings.TrimSpace(firstNonEmpty(res.Stderr, res.Error)))
	}
	i.printf("Dependencies installed\n")
	return nil
}

// Configure runs the provider wizard and writes AppDir/.env. An existing
// file is kept unless force is set.
func (i *Installer) Configure(force bool) error {
	if !force {
		if _, err := os.Stat(i.EnvPath()); err == nil {
			i.printf("Configuration found\n")
			return nil
		}
	}
	wizard := configpkg.NewWizard(i.config.Stdio.In, i.config.Stdio.Out)
	_, err := wizard.ConfigureEnvFile(i.EnvPath())
	return err
}

// Reconfigure rewrites AppDir/.env. The app must already be downloaded.
func (i *Installer) Reconfigure() error {
	if _, err := os.Stat(i.AppDir()); err != nil {
		return ErrNotInstalled
	}
	return i.Configure(true)
}

// Launch runs the bundled CLI in the foreground.
func (i *Installer) Launch(ctx context.Context) error {
	if !i.Installed() {
		return fmt.Errorf("MyCodeHelper executable not found at %s", i.ScriptPath())
	}
	i.printf("\nStarting MyCodeHelper...\n")
	return i.config.Runner.Interactive(ctx, Command{
		Name: "node",
		Args: []string{filepath.Join("bundle", "mycodehelper.js")},
		Dir:  i.AppDir(),
	}, i.config.Stdio)
}

// Clean removes the whole launcher directory.
func (i *Installer) Clean() error {
	if err := os.RemoveAll(i.config.Home); err != nil {
		return fmt.Errorf("clean %s: %w", i.config.Home, err)
	}
	return nil
}

// ResetApp removes the extracted app so the next Setup downloads it again.
func (i *Installer) ResetApp() error {
	if err := os.RemoveAll(i.AppDir()); err != nil {
		return fmt.Errorf("remove %s: %w", i.AppDir(), err)
	}
	return nil
}

// Run performs the full launcher flow: node check, download, dependencies,
// configuration and launch.
func (i *Installer) Run(ctx context.Context) error {
	version, err := CheckNode(ctx, i.config.Runner)
	if err != nil {
		return err
	}
	i.printf("Node.js %s detected\n", version)

	if err := i.Setup(ctx); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	if err := i.InstallDependencies(ctx); err != nil {
		return fmt.Errorf("dependency installation failed: %w", err)
	}
	if err := i.Configure(false); err != nil {
		return err
	}
	return i.Launch(ctx)
}

func (i *Installer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(i.config.Stdio.Out, format, args...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
