// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"errors"
	"strconv"
	"strings"
)

// RunningProcess is one process as sampled from /proc/<pid>/stat. It lives
// for a single cycle; majflt carries the process's own major faults plus
// those of its waited-for children.
type RunningProcess struct {
	PID    int
	PPID   int
	MajFlt int64
	RSS    int64 // pages
}

var errTruncatedStat = errors.New("truncated stat line")

// stat fields by position, counting from 1 as proc(5) does
const (
	statFieldPID     = 1
	statFieldPPID    = 4
	statFieldMajFlt  = 12
	statFieldCMajFlt = 13
	statFieldRSS     = 24
)

// parseStatLine parses one /proc/<pid>/stat line. Field 2 is the comm in
// parentheses and may contain both spaces and right parens, so every
// character from the first '(' through the matching (last) ')' is first
// overwritten with a filler digit; that leaves a line with the ordinary
// field positions and the comm reduced to one numeric token nobody reads.
func parseStatLine(line string) (RunningProcess, error) {
	if open := strings.IndexByte(line, '('); open >= 0 {
		if end := strings.LastIndexByte(line, ')'); end > open {
			b := []byte(line)
			for i := open; i <= end; i++ {
				b[i] = '0'
			}
			line = string(b)
		}
	}

	fields := strings.Fields(line)
	var r RunningProcess

	pid, err := statField(fields, statFieldPID)
	if err != nil {
		return RunningProcess{}, err
	}
	r.PID = int(pid)

	ppid, err := statField(fields, statFieldPPID)
	if err != nil {
		return RunningProcess{}, err
	}
	r.PPID = int(ppid)

	majflt, err := statField(fields, statFieldMajFlt)
	if err != nil {
		return RunningProcess{}, err
	}
	cmajflt, err := statField(fields, statFieldCMajFlt)
	if err != nil {
		return RunningProcess{}, err
	}
	r.MajFlt = majflt + cmajflt

	rss, err := statField(fields, statFieldRSS)
	if err != nil {
		return RunningProcess{}, err
	}
	r.RSS = rss

	return r, nil
}

// statField extracts the 1-based field n as an integer.
func statField(fields []string, n int) (int64, error) {
	if n > len(fields) {
		return 0, errTruncatedStat
	}
	return strconv.ParseInt(fields[n-1], 10, 64)
}
