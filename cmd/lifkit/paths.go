package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/lifkit/internal/api"
)

// resolveContainerPath picks the container to open. An explicit path wins;
// a bare name is looked up under dir; with no flag, dir must hold exactly
// one container.
func resolveContainerPath(fileFlag, dir string) (string, error) {
	fileFlag = strings.TrimSpace(fileFlag)
	dir = strings.TrimSpace(dir)
	if fileFlag != "" {
		if fileExists(fileFlag) || dir == "" || filepath.IsAbs(fileFlag) {
			return filepath.Clean(fileFlag), nil
		}
		if cand := filepath.Join(dir, fileFlag); fileExists(cand) {
			return cand, nil
		}
		return filepath.Clean(fileFlag), nil
	}

	if dir == "" {
		return "", fmt.Errorf("--file or --data-dir is required unless %s is set", api.EnvDataDir)
	}
	found, err := api.DiscoverContainers(dir)
	if err != nil {
		return "", err
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no containers found in %s", dir)
	case 1:
		return found[0], nil
	default:
		names := make([]string, len(found))
		for i, p := range found {
			names[i] = displayName(dir, p)
		}
		return "", fmt.Errorf("multiple containers found in %s (%s); set --file", dir, strings.Join(names, ", "))
	}
}

func displayName(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return rel
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
