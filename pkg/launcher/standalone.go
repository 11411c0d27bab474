package launcher

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	loggerpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/logger"
)

//go:embed assets/mycodehelper.js
var standaloneScript []byte

// Standalone file names written to the temporary directory.
const (
	StandaloneScriptName = "mycodehelper.js"
	StandaloneVersion    = "0.1.13"
)

// packageManifest is the package.json written next to the embedded script.
type packageManifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Type         string            `json:"type"`
	Engines      map[string]string `json:"engines"`
	Dependencies map[string]string `json:"dependencies"`
}

func standaloneManifest() packageManifest {
	return packageManifest{
		Name:         "mycodehelper-standalone",
		Version:      StandaloneVersion,
		Type:         "module",
		Engines:      map[string]string{"node": fmt.Sprintf(">=%d.0.0", MinNodeMajor)},
		Dependencies: map[string]string{},
	}
}

// Standalone runs the embedded chat client without downloading anything.
type Standalone struct {
	Runner Runner
	Stdio  Stdio
	Logger loggerpkg.Logger
	// TempRoot is where the scratch directory is created; empty means os.TempDir.
	TempRoot string
}

// Prepare writes the embedded script and its package.json to a fresh
// temporary directory and returns its path.
func (s *Standalone) Prepare() (string, error) {
	dir, err := os.MkdirTemp(s.TempRoot, "mycodehelper-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	manifest, err := json.MarshalIndent(standaloneManifest(), "", "  ")
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), manifest, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write package.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, StandaloneScriptName), standaloneScript, 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write %s: %w", StandaloneScriptName, err)
	}
	return dir, nil
}

// Run prepares the scratch directory, runs node on the embedded script with
// env added to the environment, and removes the directory afterwards.
func (s *Standalone) Run(ctx context.Context, env map[string]string) error {
	dir, err := s.Prepare()
	if err != nil {
		return err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			loggerpkg.Warn(s.Logger, "remove temp dir failed", map[string]any{"dir": dir, "error": err.Error()})
		}
	}()

	loggerpkg.Info(s.Logger, "starting standalone client", map[string]any{"dir": dir})
	runner := s.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	return runner.Interactive(ctx, Command{
		Name: "node",
		Args: []string{StandaloneScriptName},
		Dir:  dir,
		Env:  env,
	}, s.Stdio)
}
