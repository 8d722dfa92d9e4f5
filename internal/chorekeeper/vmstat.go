// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VMStat holds the three kernel counters the thrash detector looks at.
// Note that pgmajfault and pgpgout are cumulative since boot; the detector
// deliberately treats them as momentary levels, not deltas.
type VMStat struct {
	// NrFreePages is the number of completely unused RAM pages
	NrFreePages int64
	// PgMajFault counts waits for a page to be read from swap or an executable
	PgMajFault int64
	// PgPgOut counts pages written to disk, swap included
	PgPgOut int64
}

// parseVMStat reads a /proc/vmstat style stream: one "name value" pair per
// line, whitespace separated. Counters that never appear stay zero. A
// recognized counter whose value does not parse as an integer invalidates
// the whole sample.
func parseVMStat(r io.Reader) (VMStat, error) {
	var vm VMStat

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "nr_free_pages", "pgmajfault", "pgpgout":
		default:
			continue
		}

		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return VMStat{}, fmt.Errorf("bad value for %s: %w", fields[0], err)
		}

		switch fields[0] {
		case "nr_free_pages":
			vm.NrFreePages = v
		case "pgmajfault":
			vm.PgMajFault = v
		case "pgpgout":
			vm.PgPgOut = v
		}
	}
	if err := scanner.Err(); err != nil {
		return VMStat{}, err
	}

	return vm, nil
}

// readVMStat reads the vmstat file. Any failure yields the zero VMStat,
// which the verdict rules read as "no signal".
func readVMStat(path string) (VMStat, error) {
	f, err := os.Open(path)
	if err != nil {
		return VMStat{}, err
	}
	defer f.Close()

	return parseVMStat(f)
}
