package launcher

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
)

// fakeRunner answers node --version and records every command.
type fakeRunner struct {
	mu          sync.Mutex
	nodeVersion string
	nodeMissing bool
	npmFail     bool
	calls       []Command
	interactive []Command
	onRun       func(Command)
}

func (f *fakeRunner) Output(_ context.Context, c Command) Result {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()

	switch c.Name {
	case "node":
		if f.nodeMissing {
			err := &exec.Error{Name: "node", Err: exec.ErrNotFound}
			return Result{Command: c.Name, ExitCode: -1, Error: err.Error(), Err: err}
		}
		return Result{Command: c.Name, Stdout: f.nodeVersion + "\n"}
	case "npm":
		if f.npmFail {
			return Result{Command: c.Name, ExitCode: 1, Stderr: "ERESOLVE", Err: errors.New("exit status 1")}
		}
		return Result{Command: c.Name}
	}
	return Result{Command: c.Name}
}

func (f *fakeRunner) Interactive(_ context.Context, c Command, _ Stdio) error {
	f.mu.Lock()
	f.interactive = append(f.interactive, c)
	f.mu.Unlock()
	if f.onRun != nil {
		f.onRun(c)
	}
	return nil
}

func (f *fakeRunner) npmCalls() int {
	n := 0
	for _, c := range f.calls {
		if c.Name == "npm" {
			n++
		}
	}
	return n
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, entries), 0o644))
	return path
}

// TestParseNodeMajor covers version string parsing.
func TestParseNodeMajor(t *testing.T) {
	major, err := parseNodeMajor("v20.11.1")
	require.NoError(t, err)
	require.Equal(t, 20, major)

	major, err = parseNodeMajor("18.0.0")
	require.NoError(t, err)
	require.Equal(t, 18, major)

	_, err = parseNodeMajor("node")
	require.Error(t, err)
}

// TestCheckNode verifies the version gate and missing binary handling.
func TestCheckNode(t *testing.T) {
	version, err := CheckNode(context.Background(), &fakeRunner{nodeVersion: "v22.1.0"})
	require.NoError(t, err)
	require.Equal(t, "v22.1.0", version)

	_, err = CheckNode(context.Background(), &fakeRunner{nodeVersion: "v18.19.0"})
	require.ErrorIs(t, err, ErrNodeTooOld)

	_, err = CheckNode(context.Background(), &fakeRunner{nodeMissing: true})
	require.ErrorIs(t, err, ErrNodeNotFound)
}

// TestExtractZipStripsTopLevel verifies GitHub-style archives land directly in dest.
func TestExtractZipStripsTopLevel(t *testing.T) {
	src := writeZip(t, map[string]string{
		"owner-repo-abc123/package.json":           "{}",
		"owner-repo-abc123/bundle/mycodehelper.js": "console.log(1)",
	})
	dest := t.TempDir()

	n, err := extractZip(src, dest)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.FileExists(t, filepath.Join(dest, "package.json"))
	require.FileExists(t, filepath.Join(dest, "bundle", "mycodehelper.js"))
}

// TestExtractZipKeepsFlatArchives verifies archives without a single root are kept as is.
func TestExtractZipKeepsFlatArchives(t *testing.T) {
	src := writeZip(t, map[string]string{
		"a/one.txt": "1",
		"b/two.txt": "2",
	})
	dest := t.TempDir()

	_, err := extractZip(src, dest)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dest, "a", "one.txt"))
	require.FileExists(t, filepath.Join(dest, "b", "two.txt"))
}

// TestExtractZipRejectsTraversal verifies entries cannot escape the destination.
func TestExtractZipRejectsTraversal(t *testing.T) {
	for _, name := range []string{"../evil.txt", "root/../../evil.txt", `root\..\..\evil.txt`} {
		t.Run(name, func(t *testing.T) {
			src := writeZip(t, map[string]string{name: "x"})
			dest := filepath.Join(t.TempDir(), "dest")
			require.NoError(t, os.MkdirAll(dest, 0o755))

			_, err := extractZip(src, dest)
			require.Error(t, err)
			require.NoFileExists(t, filepath.Join(filepath.Dir(dest), "evil.txt"))
		})
	}
}

// TestStandalonePrepare verifies the embedded script and manifest are written.
func TestStandalonePrepare(t *testing.T) {
	s := &Standalone{TempRoot: t.TempDir()}
	dir, err := s.Prepare()
	require.NoError(t, err)

	script, err := os.ReadFile(filepath.Join(dir, StandaloneScriptName))
	require.NoError(t, err)
	require.Contains(t, string(script), "HUGGING_FACE_API_KEY")

	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	var manifest packageManifest
	require.NoError(t, json.Unmarshal(raw, &manifest))
	require.Equal(t, "mycodehelper-standalone", manifest.Name)
	require.Equal(t, "module", manifest.Type)
	require.Equal(t, ">=20.0.0", manifest.Engines["node"])
}

// TestStandaloneRunCleansUp verifies node runs in the scratch dir which is removed afterwards.
func TestStandaloneRunCleansUp(t *testing.T) {
	var seenDir string
	runner := &fakeRunner{onRun: func(c Command) {
		seenDir = c.Dir
		_, err := os.Stat(filepath.Join(c.Dir, StandaloneScriptName))
		require.NoError(t, err)
	}}
	s := &Standalone{Runner: runner, TempRoot: t.TempDir()}

	err := s.Run(context.Background(), map[string]string{configpkg.EnvHuggingFaceKey: "hf_x"})
	require.NoError(t, err)
	require.Len(t, runner.interactive, 1)
	require.Equal(t, "node", runner.interactive[0].Name)
	require.Equal(t, []string{StandaloneScriptName}, runner.interactive[0].Args)
	require.Equal(t, "hf_x", runner.interactive[0].Env[configpkg.EnvHuggingFaceKey])
	require.NoDirExists(t, seenDir)
}

// githubServer serves a release lookup and the archive downloads.
func githubServer(t *testing.T, releaseOK bool, archive []byte) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if r.Header.Get("User-Agent") != UserAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/repos/acme/helper/releases/latest":
			if !releaseOK {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = fmt.Fprintf(w, `{"tag_name":"v1.0.0","zipball_url":%q}`, srv.URL+"/zipball/v1.0.0")
		case "/zipball/v1.0.0", "/acme/helper/archive/refs/heads/main.zip":
			_, _ = w.Write(archive)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func newTestInstaller(t *testing.T, srv *httptest.Server, runner Runner, input string) (*Installer, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	inst, err := NewInstaller(InstallerConfig{
		Repo:           "acme/helper",
		Home:           filepath.Join(t.TempDir(), ".mycodehelper"),
		APIBaseURL:     srv.URL,
		ArchiveBaseURL: srv.URL,
		HTTPClient:     srv.Client(),
		Runner:         runner,
		Stdio:          Stdio{In: strings.NewReader(input), Out: &out},
	})
	require.NoError(t, err)
	return inst, &out
}

var appArchive = map[string]string{
	"acme-helper-1/package.json":           `{"name":"mycodehelper"}`,
	"acme-helper-1/bundle/mycodehelper.js": "console.log('hi')",
}

// TestInstallerSetupFromRelease verifies the release zipball is used.
func TestInstallerSetupFromRelease(t *testing.T) {
	srv, paths := githubServer(t, true, buildZip(t, appArchive))
	inst, _ := newTestInstaller(t, srv, &fakeRunner{}, "")

	require.NoError(t, inst.Setup(context.Background()))
	require.True(t, inst.Installed())
	require.Contains(t, *paths, "/zipball/v1.0.0")
	require.NoFileExists(t, filepath.Join(inst.Home(), "mycodehelper.zip"))

	// second run is a no-op
	require.NoError(t, inst.Setup(context.Background()))
	require.Len(t, *paths, 2)
}

// TestInstallerSetupFallsBackToBranch verifies the main branch archive is used when no release exists.
func TestInstallerSetupFallsBackToBranch(t *testing.T) {
	srv, paths := githubServer(t, false, buildZip(t, appArchive))
	inst, _ := newTestInstaller(t, srv, &fakeRunner{}, "")

	require.NoError(t, inst.Setup(context.Background()))
	require.True(t, inst.Installed())
	require.Contains(t, *paths, "/acme/helper/archive/refs/heads/main.zip")
}

// TestInstallDependencies verifies npm runs once and only without node_modules.
func TestInstallDependencies(t *testing.T) {
	srv, _ := githubServer(t, true, buildZip(t, appArchive))
	runner := &fakeRunner{}
	inst, _ := newTestInstaller(t, srv, runner, "")

	require.Error(t, inst.InstallDependencies(context.Background()), "no package.json yet")

	require.NoError(t, inst.Setup(context.Background()))
	require.NoError(t, inst.InstallDependencies(context.Background()))
	require.Equal(t, 1, runner.npmCalls())
	require.Equal(t, inst.AppDir(), runner.calls[0].Dir)

	require.NoError(t, os.MkdirAll(filepath.Join(inst.AppDir(), "node_modules"), 0o755))
	require.NoError(t, inst.InstallDependencies(context.Background()))
	require.Equal(t, 1, runner.npmCalls())
}

// TestInstallDependenciesReportsStderr verifies npm failures carry stderr.
func TestInstallDependenciesReportsStderr(t *testing.T) {
	srv, _ := githubServer(t, true, buildZip(t, appArchive))
	inst, _ := newTestInstaller(t, srv, &fakeRunner{npmFail: true}, "")
	require.NoError(t, inst.Setup(context.Background()))

	err := inst.InstallDependencies(context.Background())
	require.ErrorContains(t, err, "ERESOLVE")
}

// TestInstallerRunFullFlow verifies the launcher flow ends by running the bundle.
func TestInstallerRunFullFlow(t *testing.T) {
	srv, _ := githubServer(t, true, buildZip(t, appArchive))
	runner := &fakeRunner{nodeVersion: "v20.0.0"}
	inst, out := newTestInstaller(t, srv, runner, "2\n\n\n\n")

	require.NoError(t, inst.Run(context.Background()))
	require.Len(t, runner.interactive, 1)
	launched := runner.interactive[0]
	require.Equal(t, "node", launched.Name)
	require.Equal(t, []string{filepath.Join("bundle", "mycodehelper.js")}, launched.Args)
	require.Equal(t, inst.AppDir(), launched.Dir)

	values, err := configpkg.ReadEnvFile(inst.EnvPath())
	require.NoError(t, err)
	require.Equal(t, configpkg.ProviderLocalAI, values[configpkg.EnvDefaultProvider])
	require.Contains(t, out.String(), "Node.js v20.0.0 detected")
}

// TestInstallerRunStopsOnOldNode verifies nothing is downloaded without a usable Node.js.
func TestInstallerRunStopsOnOldNode(t *testing.T) {
	srv, paths := githubServer(t, true, buildZip(t, appArchive))
	inst, _ := newTestInstaller(t, srv, &fakeRunner{nodeVersion: "v16.0.0"}, "")

	require.ErrorIs(t, inst.Run(context.Background()), ErrNodeTooOld)
	require.Empty(t, *paths)
}

// TestInstallerReconfigureAndClean verifies the maintenance flags.
func TestInstallerReconfigureAndClean(t *testing.T) {
	srv, _ := githubServer(t, true, buildZip(t, appArchive))
	inst, _ := newTestInstaller(t, srv, &fakeRunner{}, "1\nhf_token\n\n")

	require.ErrorIs(t, inst.Reconfigure(), ErrNotInstalled)

	require.NoError(t, inst.Setup(context.Background()))
	require.NoError(t, os.WriteFile(inst.EnvPath(), []byte("LOCAL_AI_API_KEY=old\n"), 0o644))
	require.NoError(t, inst.Reconfigure())
	values, err := configpkg.ReadEnvFile(inst.EnvPath())
	require.NoError(t, err)
	require.Equal(t, "hf_token", values[configpkg.EnvHuggingFaceKey])
	require.NotContains(t, values, configpkg.EnvLocalAIKey)

	require.NoError(t, inst.ResetApp())
	require.False(t, inst.Installed())
	require.NoError(t, inst.Clean())
	require.NoDirExists(t, inst.Home())
}

// TestQuickInstall verifies npm and the sample env handling.
func TestQuickInstall(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{nodeVersion: "v21.0.0"}

	require.NoError(t, QuickInstall(context.Background(), runner, dir, nil))
	require.Equal(t, 1, runner.npmCalls())
	require.FileExists(t, filepath.Join(dir, ".env.example"))

	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "package-lock.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(other, ".env"), []byte("X=1"), 0o644))
	runner = &fakeRunner{nodeVersion: "v21.0.0"}
	require.NoError(t, QuickInstall(context.Background(), runner, other, nil))
	require.Equal(t, 0, runner.npmCalls())
	require.NoFileExists(t, filepath.Join(other, ".env.example"))
}

// TestMergeEnv verifies overrides are appended after the base environment.
func TestMergeEnv(t *testing.T) {
	got := mergeEnv([]string{"A=1"}, map[string]string{"C": "3", "B": "2"})
	require.Equal(t, []string{"A=1", "B=2", "C=3"}, got)
	require.Equal(t, []string{"A=1"}, mergeEnv([]string{"A=1"}, nil))
}
