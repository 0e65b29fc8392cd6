package progression

import "testing"

func losses(n int) []Result {
	out := make([]Result, n)
	for i := range out {
		out[i] = ResultLoss
	}
	return out
}

func TestDecideTransition(t *testing.T) {
	cases := []struct {
		name      string
		current   Tier
		newPoints int
		recent    []Result
		wantTier  Tier
		wantMove  Transition
	}{
		{
			name:      "crossing a threshold promotes",
			current:   TierAmateur,
			newPoints: 20,
			recent:    []Result{ResultWin, ResultWin},
			wantTier:  TierSemiPro,
			wantMove:  TransitionPromotion,
		},
		{
			name:      "promotion can skip bands",
			current:   TierAmateur,
			newPoints: 95,
			recent:    []Result{ResultWin},
			wantTier:  TierContender,
			wantMove:  TransitionPromotion,
		},
		{
			name:      "points inside current band keep tier",
			current:   TierSemiPro,
			newPoints: 35,
			recent:    []Result{ResultWin, ResultLoss},
			wantTier:  TierSemiPro,
			wantMove:  TransitionNone,
		},
		{
			name:      "falling point total alone never demotes",
			current:   TierPro,
			newPoints: 25,
			recent:    []Result{ResultLoss, ResultWin, ResultLoss, ResultLoss, ResultLoss},
			wantTier:  TierPro,
			wantMove:  TransitionNone,
		},
		{
			name:      "five straight losses demote one band",
			current:   TierPro,
			newPoints: 60,
			recent:    losses(5),
			wantTier:  TierSemiPro,
			wantMove:  TransitionDemotion,
		},
		{
			name:      "four losses are not enough",
			current:   TierPro,
			newPoints: 60,
			recent:    losses(4),
			wantTier:  TierPro,
			wantMove:  TransitionNone,
		},
		{
			name:      "a draw in the window breaks the streak",
			current:   TierPro,
			newPoints: 60,
			recent:    []Result{ResultLoss, ResultLoss, ResultDraw, ResultLoss, ResultLoss},
			wantTier:  TierPro,
			wantMove:  TransitionNone,
		},
		{
			name:      "amateurs cannot be demoted",
			current:   TierAmateur,
			newPoints: -10,
			recent:    losses(5),
			wantTier:  TierAmateur,
			wantMove:  TransitionNone,
		},
		{
			name:      "demotion moves exactly one band even from elite",
			current:   TierElite,
			newPoints: 160,
			recent:    losses(5),
			wantTier:  TierContender,
			wantMove:  TransitionDemotion,
		},
		{
			name:      "promotion outranks a simultaneous loss streak",
			current:   TierSemiPro,
			newPoints: 45,
			recent:    losses(5),
			wantTier:  TierPro,
			wantMove:  TransitionPromotion,
		},
		{
			name:      "negative totals stay in the floor band",
			current:   TierAmateur,
			newPoints: -9,
			recent:    []Result{ResultLoss, ResultLoss, ResultLoss},
			wantTier:  TierAmateur,
			wantMove:  TransitionNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, move := DecideTransition(tc.current, tc.newPoints, tc.recent)
			if tier != tc.wantTier || move != tc.wantMove {
				t.Errorf("DecideTransition(%s, %d) = (%s, %q), want (%s, %q)",
					tc.current, tc.newPoints, tier, move, tc.wantTier, tc.wantMove)
			}
		})
	}
}

func TestIsFullLossStreak(t *testing.T) {
	if isFullLossStreak(losses(4)) {
		t.Error("four losses must not count as a full streak")
	}
	if !isFullLossStreak(losses(5)) {
		t.Error("five losses form a full streak")
	}
	mixed := losses(5)
	mixed[2] = ResultWin
	if isFullLossStreak(mixed) {
		t.Error("a win inside the window breaks the streak")
	}
}
