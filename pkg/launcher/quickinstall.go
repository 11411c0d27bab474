package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	configpkg "github.com/Franzferdinan51/MyCodingHelper/pkg/config"
)

// QuickInstall prepares a checkout in dir: it checks Node.js, runs npm
// install when no package-lock.json exists, and writes .env.example when
// .env is missing.
func QuickInstall(ctx context.Context, runner Runner, dir string, out io.Writer) error {
	if runner == nil {
		runner = ExecRunner{}
	}
	if out == nil {
		out = io.Discard
	}

	version, err := CheckNode(ctx, runner)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Node.js %s detected\n", version)

	if _, err := os.Stat(filepath.Join(dir, "package-lock.json")); err != nil {
		_, _ = fmt.Fprintln(out, "Installing dependencies...")
		res := runner.Output(ctx, Command{Name: "npm", Args: []string{"install"}, Dir: dir})
		if res.Err != nil || res.ExitCode != 0 {
			return fmt.Errorf("npm install failed: %s", strings.TrimSpace(firstNonEmpty(res.Stderr, res.Error)))
		}
		_, _ = fmt.Fprintln(out, "Dependencies installed")
	}

	if _, err := os.Stat(filepath.Join(dir, ".env")); err != nil {
		wrote, err := configpkg.WriteSampleEnv(filepath.Join(dir, ".env.example"))
		if err != nil {
			return err
		}
		if wrote {
			_, _ = fmt.Fprintln(out, "Created .env.example; copy it to .env and add your provider settings")
		}
	}

	_, _ = fmt.Fprintln(out, "Installation complete")
	return nil
}
