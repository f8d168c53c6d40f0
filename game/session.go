package game

import (
	"time"
)

type TaskType string

const (
	TaskTruth TaskType = "TRUTH"
	TaskDare  TaskType = "DARE"
)

func (t TaskType) Valid() bool {
	return t == TaskTruth || t == TaskDare
}

type Vote string

const (
	VoteComplete   Vote = "complete"
	VoteIncomplete Vote = "incomplete"
)

func (v Vote) Valid() bool {
	return v == VoteComplete || v == VoteIncomplete
}

// Question is one candidate question submitted for the current turn.
type Question struct {
	AuthorID   uint   `json:"userId"`
	AuthorName string `json:"userName"`
	Text       string `json:"question"`
}

// GameSession is the transient per-room state. It is only touched from the
// room's worker goroutine, see Coordinator.
type GameSession struct {
	Code string

	TargetPlayerID   uint
	TargetPlayerName string
	TaskType         TaskType

	Questions        []Question
	SelectedQuestion *string

	completedVotes  map[uint]struct{}
	incompleteVotes map[uint]struct{}
	resolved        bool

	hadBottle map[uint]struct{}

	scores     map[uint]int
	scoreOrder []uint

	// roster is the last player list the coordinator read for this room.
	roster []Player

	generation uint64
	resetTimer *time.Timer
}

func newGameSession(code string, players []Player) *GameSession {
	s := &GameSession{
		Code:            code,
		completedVotes:  make(map[uint]struct{}),
		incompleteVotes: make(map[uint]struct{}),
		hadBottle:       make(map[uint]struct{}),
		scores:          make(map[uint]int),
	}
	s.ensureScores(players)
	s.roster = players
	return s
}

// ensureScores adds a zero entry for every player not scored yet. Existing
// entries are never touched.
func (s *GameSession) ensureScores(players []Player) {
	for _, p := range players {
		if _, ok := s.scores[p.UserID]; ok {
			continue
		}
		s.scores[p.UserID] = 0
		s.scoreOrder = append(s.scoreOrder, p.UserID)
	}
}

func (s *GameSession) Score(userID uint) (int, bool) {
	score, ok := s.scores[userID]
	return score, ok
}

func (s *GameSession) HadBottle(userID uint) bool {
	_, ok := s.hadBottle[userID]
	return ok
}

func (s *GameSession) CompletedVotes() int  { return len(s.completedVotes) }
func (s *GameSession) IncompleteVotes() int { return len(s.incompleteVotes) }
func (s *GameSession) Generation() uint64   { return s.generation }

// ScoreTable lists every scored player in first-seen order. Ids that no
// longer map to a roster entry are labelled "Unknown".
func (s *GameSession) ScoreTable(roster []Player) []ScoreEntry {
	names := make(map[uint]string, len(roster))
	for _, p := range roster {
		names[p.UserID] = p.Name
	}

	table := make([]ScoreEntry, 0, len(s.scoreOrder))
	for _, id := range s.scoreOrder {
		name, ok := names[id]
		if !ok {
			name = "Unknown"
		}
		table = append(table, ScoreEntry{UserID: id, UserName: name, Score: s.scores[id]})
	}
	return table
}

func (s *GameSession) resetTurn() {
	s.Questions = nil
	s.SelectedQuestion = nil
	clear(s.completedVotes)
	clear(s.incompleteVotes)
	s.resolved = false
}

// beginTurn invalidates any deferred reset scheduled by an earlier turn.
func (s *GameSession) beginTurn() {
	s.generation++
	s.cancelReset()
}

func (s *GameSession) cancelReset() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

// Snapshot copies the externally visible state of the session, naming
// players after the last roster seen.
func (s *GameSession) Snapshot() Snapshot {
	snap := Snapshot{
		RoomCode:         s.Code,
		TargetPlayerID:   s.TargetPlayerID,
		TargetPlayerName: s.TargetPlayerName,
		TaskType:         s.TaskType,
		Questions:        append([]Question(nil), s.Questions...),
		CompletedVotes:   len(s.completedVotes),
		IncompleteVotes:  len(s.incompleteVotes),
		Resolved:         s.resolved,
		Scores:           s.ScoreTable(s.roster),
		Generation:       s.generation,
	}
	if s.SelectedQuestion != nil {
		q := *s.SelectedQuestion
		snap.SelectedQuestion = &q
	}
	return snap
}

type Snapshot struct {
	RoomCode         string       `json:"roomCode"`
	TargetPlayerID   uint         `json:"targetPlayerId,omitempty"`
	TargetPlayerName string       `json:"targetPlayerName,omitempty"`
	TaskType         TaskType     `json:"taskType,omitempty"`
	Questions        []Question   `json:"questions"`
	SelectedQuestion *string      `json:"selectedQuestion"`
	CompletedVotes   int          `json:"completedVotes"`
	IncompleteVotes  int          `json:"incompleteVotes"`
	Resolved         bool         `json:"resolved"`
	Scores           []ScoreEntry `json:"scores"`
	Generation       uint64       `json:"generation"`
}
