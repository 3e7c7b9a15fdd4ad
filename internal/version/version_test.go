// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "v1.0.0",
		GitCommit: "abc1234",
		BuildTime: "2026-01-30T12:00:00Z",
	}

	want := "v1.0.0 (commit: abc1234, built: 2026-01-30T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
