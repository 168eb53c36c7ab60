package rating

import (
	"testing"
	"time"
)

func TestAggregate(t *testing.T) {
	cases := []struct {
		name      string
		scores    []int
		wantAvg   float64
		wantCount int
	}{
		{"empty", nil, 0, 0},
		{"single", []int{5}, 5.0, 1},
		{"three reviews", []int{8, 6, 10}, 8.0, 3},
		{"after deleting the 10", []int{8, 6}, 7.0, 2},
		{"rounded down", []int{6, 6, 8}, 6.7, 3},
		{"after raising 6 to 9", []int{9, 6, 8}, 7.7, 3},
		{"half rounds up", []int{7, 8}, 7.5, 2},
		{"concurrent creates 10 and 2", []int{10, 2}, 6.0, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			avg, count := aggregate(tc.scores)
			if avg != tc.wantAvg {
				t.Fatalf("aggregate(%v) avg = %v, want %v", tc.scores, avg, tc.wantAvg)
			}
			if count != tc.wantCount {
				t.Fatalf("aggregate(%v) count = %d, want %d", tc.scores, count, tc.wantCount)
			}
		})
	}
}

func TestWeightedScore(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	// Fresh review with no reactions contributes its raw score.
	fresh := weightedScore(8, 0, 0, now, now)
	if fresh != 8.0 {
		t.Fatalf("fresh weighted score = %v, want 8.0", fresh)
	}

	// Decay floors at 0.5 for very old reviews.
	old := weightedScore(8, 0, 0, now.AddDate(-3, 0, 0), now)
	if old != 4.0 {
		t.Fatalf("old weighted score = %v, want 4.0", old)
	}

	// Net likes raise the contribution by 1% each.
	liked := weightedScore(10, 10, 0, now, now)
	if liked < 10.99 || liked > 11.01 {
		t.Fatalf("liked weighted score = %v, want ~11.0", liked)
	}

	// Net dislikes lower it.
	disliked := weightedScore(10, 0, 10, now, now)
	if disliked < 8.99 || disliked > 9.01 {
		t.Fatalf("disliked weighted score = %v, want ~9.0", disliked)
	}
}
