package game

const (
	spinBaseRotation = 1440
	spinTopOffset    = 90
)

// Spin is the outcome of a bottle spin.
type Spin struct {
	Angle            float64
	TargetIndex      int
	TargetPlayerID   uint
	TargetPlayerName string
}

// SelectTarget picks the next target. Players who have not had the bottle
// yet are preferred, so the first len(players) spins visit everyone once.
// It returns false when there is nobody to pick.
func SelectTarget(session *GameSession, players []Player, rng Random) (Spin, bool) {
	if len(players) == 0 {
		return Spin{}, false
	}

	var candidates []int
	for i, p := range players {
		if !session.HadBottle(p.UserID) {
			candidates = append(candidates, i)
		}
	}

	var targetIndex int
	if len(candidates) > 0 {
		targetIndex = candidates[rng.IntN(len(candidates))]
	} else {
		targetIndex = rng.IntN(len(players))
	}

	// A spin supersedes whatever reset the previous turn still has pending.
	session.beginTurn()
	if session.resolved {
		session.resetTurn()
	}

	target := players[targetIndex]
	session.hadBottle[target.UserID] = struct{}{}
	session.TargetPlayerID = target.UserID
	session.TargetPlayerName = target.Name

	segment := 360 / float64(len(players))
	return Spin{
		Angle:            spinBaseRotation + float64(targetIndex)*segment + spinTopOffset,
		TargetIndex:      targetIndex,
		TargetPlayerID:   target.UserID,
		TargetPlayerName: target.Name,
	}, true
}

// CoinFlip is the outcome of the task type decision.
type CoinFlip struct {
	Side     string
	TaskType TaskType
}

// ChooseTaskType flips a fair coin: heads is a truth, tails a dare. A new
// task type always starts a fresh question and vote cycle.
func ChooseTaskType(session *GameSession, rng Random) CoinFlip {
	flip := CoinFlip{Side: "tails", TaskType: TaskDare}
	if coinFlip(rng) {
		flip = CoinFlip{Side: "heads", TaskType: TaskTruth}
	}

	session.beginTurn()
	session.TaskType = flip.TaskType
	session.resetTurn()
	return flip
}
