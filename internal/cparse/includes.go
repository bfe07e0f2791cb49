package cparse

import (
	"fmt"
	"os/exec"
	"strings"
)

// ccProbe runs the default C compiler in preprocess-verbose mode and
// returns its stderr, where the include search list is printed.
// Swappable for tests.
var ccProbe = func() (string, error) {
	cmd := exec.Command("cc", "-xc", "-E", "-v", "-")
	cmd.Stdin = strings.NewReader("")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run cc: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return stderr.String(), nil
}

// IncludeSearchArgs probes the default C compiler for its include
// search directories and returns them as -isystem argument pairs.
// Callers treat failure as non-fatal: the catalog indexes fine without
// system include paths.
func IncludeSearchArgs() ([]string, error) {
	stderr, err := ccProbe()
	if err != nil {
		return nil, err
	}
	return parseIncludeSearchList(stderr), nil
}

func parseIncludeSearchList(stderr string) []string {
	const (
		startMarker = `#include "..." search starts here:`
		midMarker   = "#include <...> search starts here:"
		endMarker   = "End of search list."
	)

	var args []string
	inList := false
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == startMarker:
			inList = true
		case line == midMarker:
			inList = true
		case line == endMarker:
			return args
		case inList && line != "":
			args = append(args, "-isystem", line)
		}
	}
	if !inList {
		return nil
	}
	return args
}
