package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MinNodeMajor is the oldest Node.js major version the helper runs on.
const MinNodeMajor = 20

// NodeDownloadURL is shown when Node.js is missing or too old.
const NodeDownloadURL = "https://nodejs.org/"

var (
	ErrNodeNotFound = errors.New("Node.js not found")
	ErrNodeTooOld   = errors.New("Node.js version too old")
)

// CheckNode runs `node --version` and returns the version string when it
// satisfies MinNodeMajor.
func CheckNode(ctx context.Context, runner Runner) (string, error) {
	res := runner.Output(ctx, Command{Name: "node", Args: []string{"--version"}})
	if res.Err != nil {
		if errors.Is(res.Err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: install Node.js %d+ from %s", ErrNodeNotFound, MinNodeMajor, NodeDownloadURL)
		}
		return "", fmt.Errorf("node --version: %s", strings.TrimSpace(res.Error+" "+res.Stderr))
	}

	version := strings.TrimSpace(res.Stdout)
	major, err := parseNodeMajor(version)
	if err != nil {
		return "", err
	}
	if major < MinNodeMajor {
		return version, fmt.Errorf("%w: found %s, need %d+ (%s)", ErrNodeTooOld, version, MinNodeMajor, NodeDownloadURL)
	}
	return version, nil
}

// parseNodeMajor extracts the major version from output such as "v20.11.1".
func parseNodeMajor(version string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	major, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return 0, fmt.Errorf("unrecognized node version %q", version)
	}
	return n, nil
}
