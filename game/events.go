package game

// Outbound event names. Every event is broadcast to the whole room except
// EventError, which only goes to the connection that caused it.
const (
	EventPlayerJoined     = "player_joined"
	EventGameStarted      = "game_started"
	EventSpinResult       = "spin_result"
	EventCoinFlipResult   = "coin_flip_result"
	EventTaskSessionReady = "task_session_ready"
	EventQuestionsUpdated = "questions_updated"
	EventQuestionSelected = "question_selected"
	EventVotesUpdated     = "votes_updated"
	EventTaskResult       = "task_result"
	EventScoresUpdated    = "scores_updated"
	EventTurnComplete     = "turn_complete"
	EventTurnEnded        = "turn_ended"
	EventError            = "error"
)

type PlayerJoinedPayload struct {
	Players []Player `json:"players"`
	HostID  uint     `json:"hostId"`
}

type SpinResultPayload struct {
	Angle            float64 `json:"angle"`
	TargetPlayerID   uint    `json:"targetPlayerId"`
	TargetPlayerName string  `json:"targetPlayerName"`
}

type CoinFlipPayload struct {
	Side     string   `json:"side"`
	TaskType TaskType `json:"taskType"`
}

type TaskSessionReadyPayload struct {
	TaskType TaskType `json:"taskType"`
}

type QuestionsUpdatedPayload struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	Current   int        `json:"current"`
}

type QuestionSelectedPayload struct {
	Question string `json:"question"`
	AskedBy  string `json:"askedBy"`
}

type VotesUpdatedPayload struct {
	CompletedVotes  int `json:"completedVotes"`
	IncompleteVotes int `json:"incompleteVotes"`
	TotalVotes      int `json:"totalVotes"`
	Required        int `json:"required"`
}

type TaskResultPayload struct {
	Result Result `json:"result"`
}

type ScoreEntry struct {
	UserID   uint   `json:"userId"`
	UserName string `json:"userName"`
	Score    int    `json:"score"`
}
