package progression

import "testing"

func TestComputeProgress(t *testing.T) {
	cases := []struct {
		name       string
		tier       Tier
		points     int
		wantToNext int
		wantPct    float64
	}{
		{"fresh amateur", TierAmateur, 0, 20, 0},
		{"halfway through amateur", TierAmateur, 10, 10, 50},
		{"one short of promotion", TierAmateur, 19, 1, 95},
		{"negative points clamp to zero percent", TierAmateur, -6, 26, 0},
		{"demoted fighter holds points above the band", TierSemiPro, 45, 0, 100},
		{"top band is always complete", TierElite, 200, 0, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := computeProgress(tc.tier, tc.points)
			if got.CurrentTier != tc.tier || got.Points != tc.points {
				t.Fatalf("identity fields mangled: %+v", got)
			}
			if got.PointsToNext != tc.wantToNext {
				t.Errorf("PointsToNext = %d, want %d", got.PointsToNext, tc.wantToNext)
			}
			if got.ProgressPercent != tc.wantPct {
				t.Errorf("ProgressPercent = %v, want %v", got.ProgressPercent, tc.wantPct)
			}
		})
	}
}
