// SPDX-FileCopyrightText: 2026 The Nodee Authors
// SPDX-License-Identifier: BSD-2-Clause

package chorekeeper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// statLine synthesizes a /proc/<pid>/stat line with the given fields and
// plausible filler everywhere else.
func statLine(pid int, comm string, ppid int, majflt, cmajflt, rss int64) string {
	return fmt.Sprintf("%d (%s) S %d 1 1 0 -1 4194560 500 0 %d %d 12 4 0 0 20 0 1 0 300 10000000 %d 18446744073709551615 94000 94100",
		pid, comm, ppid, majflt, cmajflt, rss)
}

func TestParseStatLine(t *testing.T) {
	t.Run("plain comm", func(t *testing.T) {
		r, err := parseStatLine(statLine(42, "nginx", 7, 10, 5, 1234))
		require.NoError(t, err)
		assert.Equal(t, 42, r.PID)
		assert.Equal(t, 7, r.PPID)
		assert.Equal(t, int64(15), r.MajFlt, "own and child major faults are summed")
		assert.Equal(t, int64(1234), r.RSS)
	})

	t.Run("comm with spaces", func(t *testing.T) {
		r, err := parseStatLine(statLine(42, "tmux: server", 7, 0, 0, 50))
		require.NoError(t, err)
		assert.Equal(t, 42, r.PID)
		assert.Equal(t, 7, r.PPID)
	})

	t.Run("comm with embedded right paren", func(t *testing.T) {
		r, err := parseStatLine(statLine(12, "foo ) bar", 7, 0, 0, 50))
		require.NoError(t, err)
		assert.Equal(t, 12, r.PID)
		assert.Equal(t, 7, r.PPID)
	})

	t.Run("comm with escaped right paren", func(t *testing.T) {
		r, err := parseStatLine(statLine(12, `weird\)name`, 7, 3, 0, 50))
		require.NoError(t, err)
		assert.Equal(t, 12, r.PID)
		assert.Equal(t, 7, r.PPID)
		assert.Equal(t, int64(3), r.MajFlt)
	})

	t.Run("truncated line", func(t *testing.T) {
		_, err := parseStatLine("42 (short) S 7 1 1")
		assert.Error(t, err)
	})

	t.Run("empty line", func(t *testing.T) {
		_, err := parseStatLine("")
		assert.Error(t, err)
	})

	t.Run("non-integer pid", func(t *testing.T) {
		_, err := parseStatLine("x (comm) S 7 1 1 0 -1 0 0 0 0 0 0 0 0 0 0 0 1 0 0 0 10")
		assert.Error(t, err)
	})

	t.Run("non-integer rss", func(t *testing.T) {
		_, err := parseStatLine("42 (nginx) S 7 1 1 0 -1 4194560 500 0 3 1 12 4 0 0 20 0 1 0 300 10000000 x")
		assert.Error(t, err)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, tc := range []struct {
			pid, ppid            int
			majflt, cmajflt, rss int64
		}{
			{1, 0, 0, 0, 100},
			{4242, 1, 99, 1, 0},
			{32768, 4242, 0, 7, 987654},
		} {
			r, err := parseStatLine(statLine(tc.pid, "svc", tc.ppid, tc.majflt, tc.cmajflt, tc.rss))
			require.NoError(t, err)
			assert.Equal(t, tc.pid, r.PID)
			assert.Equal(t, tc.ppid, r.PPID)
			assert.Equal(t, tc.majflt+tc.cmajflt, r.MajFlt)
			assert.Equal(t, tc.rss, r.RSS)
		}
	})
}
