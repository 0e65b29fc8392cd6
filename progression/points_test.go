package progression

import "testing"

func TestCalculatePoints(t *testing.T) {
	cases := []struct {
		name   string
		result Result
		method Method
		want   int
	}{
		{"win by decision", ResultWin, MethodDecision, 5},
		{"win by submission", ResultWin, MethodSubmission, 5},
		{"win by knockout earns bonus", ResultWin, MethodKnockout, 8},
		{"win by technical knockout earns bonus", ResultWin, MethodTechnicalKnockout, 8},
		{"loss by decision", ResultLoss, MethodDecision, -3},
		{"loss by knockout earns no bonus", ResultLoss, MethodKnockout, -3},
		{"draw", ResultDraw, MethodDecision, 0},
		{"draw by technical knockout stays zero", ResultDraw, MethodTechnicalKnockout, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CalculatePoints(tc.result, tc.method); got != tc.want {
				t.Errorf("CalculatePoints(%s, %s) = %d, want %d", tc.result, tc.method, got, tc.want)
			}
		})
	}
}

func TestNormalizeResult(t *testing.T) {
	cases := []struct {
		raw    string
		want   Result
		wantOK bool
	}{
		{"win", ResultWin, true},
		{"  Win ", ResultWin, true},
		{"W", ResultWin, true},
		{"victory", ResultWin, true},
		{"loss", ResultLoss, true},
		{"L", ResultLoss, true},
		{"defeat", ResultLoss, true},
		{"draw", ResultDraw, true},
		{"tie", ResultDraw, true},
		{"banana", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := NormalizeResult(tc.raw)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("NormalizeResult(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestNormalizeMethod(t *testing.T) {
	cases := []struct {
		raw  string
		want Method
	}{
		{"KO", MethodKnockout},
		{"knockout", MethodKnockout},
		{"T.K.O.", MethodTechnicalKnockout},
		{"technical knockout", MethodTechnicalKnockout},
		{"Unanimous Decision", MethodDecision},
		{"split-decision", MethodDecision},
		{"sub", MethodSubmission},
		{"tapout", MethodSubmission},
		{"DQ", MethodDisqualification},
		{"no contest", MethodNoContest},
		// unrecognized input must not accidentally qualify for the bonus
		{"mystery finish", MethodDecision},
		{"", MethodDecision},
	}

	for _, tc := range cases {
		if got := NormalizeMethod(tc.raw); got != tc.want {
			t.Errorf("NormalizeMethod(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIsStoppage(t *testing.T) {
	stoppages := map[Method]bool{
		MethodKnockout:          true,
		MethodTechnicalKnockout: true,
		MethodDecision:          false,
		MethodSubmission:        false,
		MethodDisqualification:  false,
		MethodNoContest:         false,
	}
	for method, want := range stoppages {
		if got := IsStoppage(method); got != want {
			t.Errorf("IsStoppage(%s) = %v, want %v", method, got, want)
		}
	}
}
