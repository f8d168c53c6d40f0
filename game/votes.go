package game

type Result string

const (
	ResultComplete   Result = "complete"
	ResultIncomplete Result = "incomplete"
)

type VoteTally struct {
	CompletedVotes  int
	IncompleteVotes int
	TotalVotes      int
	Required        int
}

type VoteOutcome struct {
	Tally  VoteTally
	Result *Result
}

// CastVote records playerID's vote and decides the turn when possible.
//
// A side wins early once it holds strictly more than ceil(required/2)
// votes. Otherwise the turn waits for every vote, the larger side wins and
// an exact tie is settled by a coin flip. A turn is decided at most once;
// later votes still count in the tally. A complete outcome gives the target
// one point.
func CastVote(session *GameSession, playerID uint, vote Vote, required int, rng Random) VoteOutcome {
	if vote == VoteComplete {
		session.completedVotes[playerID] = struct{}{}
		delete(session.incompleteVotes, playerID)
	} else {
		session.incompleteVotes[playerID] = struct{}{}
		delete(session.completedVotes, playerID)
	}

	completed := len(session.completedVotes)
	incomplete := len(session.incompleteVotes)
	outcome := VoteOutcome{
		Tally: VoteTally{
			CompletedVotes:  completed,
			IncompleteVotes: incomplete,
			TotalVotes:      completed + incomplete,
			Required:        required,
		},
	}

	if session.resolved {
		return outcome
	}

	result, ok := decide(completed, incomplete, required, rng)
	if !ok {
		return outcome
	}

	session.resolved = true
	if result == ResultComplete && session.TargetPlayerID != 0 {
		if _, known := session.scores[session.TargetPlayerID]; !known {
			session.scoreOrder = append(session.scoreOrder, session.TargetPlayerID)
		}
		session.scores[session.TargetPlayerID]++
	}
	outcome.Result = &result
	return outcome
}

func decide(completed, incomplete, required int, rng Random) (Result, bool) {
	majority := (required + 1) / 2

	switch {
	case completed > majority:
		return ResultComplete, true
	case incomplete > majority:
		return ResultIncomplete, true
	case completed+incomplete < required:
		return "", false
	case completed > incomplete:
		return ResultComplete, true
	case incomplete > completed:
		return ResultIncomplete, true
	case coinFlip(rng):
		return ResultComplete, true
	default:
		return ResultIncomplete, true
	}
}
