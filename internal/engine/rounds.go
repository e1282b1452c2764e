package engine

const RoundCount = 3

var Rounds = []int{1, 2, 3}

func ValidRound(round int) bool {
	return round >= 1 && round <= RoundCount
}

// VoteFor returns the stored winner for round, or WinnerNone for an unvoted or
// out-of-range round.
func VoteFor(s State, round int) Winner {
	if !ValidRound(round) {
		return WinnerNone
	}
	return s.Votes[round-1]
}
