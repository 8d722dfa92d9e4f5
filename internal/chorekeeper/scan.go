// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrProcUnreadable means the proc directory itself could not be
// enumerated. Per-pid failures are expected churn; this one breaks the
// basic assumption the chore keeper runs on and is fatal.
var ErrProcUnreadable = errors.New("proc directory unreadable")

// scanProcesses builds the cycle's process-tree view: one RunningProcess
// per pid directory whose stat line parses. Entries that vanish mid-scan
// or fail to parse are dropped, never zeroed.
func scanProcesses(procPath string) (map[int]*RunningProcess, error) {
	entries, err := os.ReadDir(procPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProcUnreadable, procPath, err)
	}

	view := make(map[int]*RunningProcess, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		// pid directories are the ones whose name ends in a digit
		last := name[len(name)-1]
		if last < '0' || last > '9' {
			continue
		}

		line, err := readFirstLine(filepath.Join(procPath, name, "stat"))
		if err != nil {
			continue
		}

		r, err := parseStatLine(line)
		if err != nil {
			continue
		}
		view[r.PID] = &r
	}

	return view, nil
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("empty file")
	}
	return scanner.Text(), nil
}
