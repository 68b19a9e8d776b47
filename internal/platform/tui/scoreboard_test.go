package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vovakirdan/snakechain/internal/leaderboard"
)

func testEntries(n int) []leaderboard.Entry {
	entries := make([]leaderboard.Entry, n)
	for i := range entries {
		entries[i] = leaderboard.Entry{
			Account: fmt.Sprintf("0x%040x", i+1),
			Score:   uint64(100 - i),
			Rank:    i + 1,
		}
	}
	return entries
}

func TestLeaderboardViewPaging(t *testing.T) {
	v := NewLeaderboardView(10, "")
	v.SetSnapshot(leaderboard.Snapshot{Entries: testEntries(25), State: leaderboard.StateReady})

	if got := len(v.table.Rows()); got != 10 {
		t.Fatalf("page 1 rows = %d, want 10", got)
	}

	v.NextPage()
	v.NextPage()
	v.NextPage()
	if v.page != 3 {
		t.Errorf("page = %d, want 3 (clamped)", v.page)
	}
	if got := len(v.table.Rows()); got != 5 {
		t.Errorf("last page rows = %d, want 5", got)
	}

	// A smaller collection pulls the page back into range.
	v.SetSnapshot(leaderboard.Snapshot{Entries: testEntries(4), State: leaderboard.StateReady})
	if v.page != 1 {
		t.Errorf("page after shrink = %d, want 1", v.page)
	}

	v.PrevPage()
	if v.page != 1 {
		t.Errorf("page = %d, want 1 (clamped)", v.page)
	}
}

func TestLeaderboardViewMarksOwnAccount(t *testing.T) {
	entries := testEntries(3)
	own := strings.ToUpper(entries[1].Account[2:])
	v := NewLeaderboardView(10, "0x"+own)
	v.SetSnapshot(leaderboard.Snapshot{Entries: entries, State: leaderboard.StateReady})

	rows := v.table.Rows()
	if !strings.HasPrefix(rows[1][1], "★") {
		t.Errorf("own row player = %q, want marker", rows[1][1])
	}
	if strings.HasPrefix(rows[0][1], "★") {
		t.Errorf("other row player = %q, want no marker", rows[0][1])
	}
}

func TestLeaderboardViewStates(t *testing.T) {
	tests := []struct {
		name string
		snap leaderboard.Snapshot
		want string
	}{
		{"loading empty", leaderboard.Snapshot{State: leaderboard.StateLoading}, "Loading scores"},
		{"ready empty", leaderboard.Snapshot{State: leaderboard.StateReady}, "No scores on chain yet"},
		{"error", leaderboard.Snapshot{State: leaderboard.StateError}, "g to retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewLeaderboardView(10, "")
			v.SetSnapshot(tt.snap)
			if out := v.View(); !strings.Contains(out, tt.want) {
				t.Errorf("View() = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestRefreshNotice(t *testing.T) {
	if got := refreshNotice(nil); got != "" {
		t.Errorf("refreshNotice(nil) = %q", got)
	}
	if got := refreshNotice(leaderboard.ErrRateLimited); !strings.Contains(got, "slow down") {
		t.Errorf("refreshNotice(rate limited) = %q", got)
	}
	if got := refreshNotice(fmt.Errorf("x: %w", leaderboard.ErrReadFailure)); got != "refresh failed" {
		t.Errorf("refreshNotice(read failure) = %q", got)
	}
}
