package progression

import "strings"

// Result classifies a fight outcome from the reporting fighter's perspective.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// Method is the canonical way a fight ended.
type Method string

const (
	MethodKnockout          Method = "knockout"
	MethodTechnicalKnockout Method = "technical_knockout"
	MethodDecision          Method = "decision"
	MethodSubmission        Method = "submission"
	MethodDisqualification  Method = "disqualification"
	MethodNoContest         Method = "no_contest"
)

const (
	winPoints     = 5
	lossPoints    = -3
	drawPoints    = 0
	stoppageBonus = 3
)

// CalculatePoints converts a fight outcome into the signed point delta applied
// to the fighter's total. A win by stoppage earns the bonus on top of the base
// win award; losses and draws never earn a bonus regardless of method.
func CalculatePoints(result Result, method Method) int {
	switch result {
	case ResultWin:
		if IsStoppage(method) {
			return winPoints + stoppageBonus
		}
		return winPoints
	case ResultLoss:
		return lossPoints
	default:
		return drawPoints
	}
}

// IsStoppage reports whether the method qualifies for the stoppage bonus.
func IsStoppage(method Method) bool {
	return method == MethodKnockout || method == MethodTechnicalKnockout
}

// NormalizeResult maps free-text input to a canonical Result.
func NormalizeResult(raw string) (Result, bool) {
	switch canonical(raw) {
	case "win", "w", "victory":
		return ResultWin, true
	case "loss", "l", "lose", "defeat":
		return ResultLoss, true
	case "draw", "d", "tie":
		return ResultDraw, true
	}
	return "", false
}

// NormalizeMethod maps free-text method input to a canonical Method. Input
// arrives from self-reports and admin tooling, so common abbreviations and
// misspellings are tolerated. Unrecognized values default to decision, which
// never earns a bonus.
func NormalizeMethod(raw string) Method {
	switch canonical(raw) {
	case "ko", "knockout", "knock_out", "knockdown":
		return MethodKnockout
	case "tko", "technical_knockout", "technical_ko", "tech_knockout":
		return MethodTechnicalKnockout
	case "decision", "unanimous_decision", "split_decision", "majority_decision", "points":
		return MethodDecision
	case "sub", "submission", "tapout", "tap_out":
		return MethodSubmission
	case "dq", "disqualification", "disqualified":
		return MethodDisqualification
	case "nc", "no_contest", "nocontest":
		return MethodNoContest
	}
	return MethodDecision
}

func canonical(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
