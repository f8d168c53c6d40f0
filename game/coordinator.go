package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultResultDelay = 3 * time.Second

type CoordinatorOptions struct {
	Random      Random
	Snapshots   SnapshotStore
	Stats       StatsRecorder
	ResultDelay time.Duration
}

// Coordinator drives every room's game. Each inbound action becomes a
// command executed on the room's worker, which owns the room's session for
// the duration of the command.
type Coordinator struct {
	rooms       RoomDirectory
	out         Broadcaster
	sessions    *SessionStore
	rng         Random
	snapshots   SnapshotStore
	stats       StatsRecorder
	resultDelay time.Duration

	mu      sync.Mutex
	workers map[string]*roomWorker
}

func NewCoordinator(rooms RoomDirectory, out Broadcaster, opts CoordinatorOptions) *Coordinator {
	if opts.Random == nil {
		opts.Random = NewRandom()
	}
	if opts.ResultDelay <= 0 {
		opts.ResultDelay = DefaultResultDelay
	}
	return &Coordinator{
		rooms:       rooms,
		out:         out,
		sessions:    NewSessionStore(),
		rng:         opts.Random,
		snapshots:   opts.Snapshots,
		stats:       opts.Stats,
		resultDelay: opts.ResultDelay,
		workers:     make(map[string]*roomWorker),
	}
}

func (c *Coordinator) Sessions() *SessionStore {
	return c.sessions
}

// Join adds player to the room roster, or refreshes their connection if they
// are already a member, and makes sure the room has a session.
func (c *Coordinator) Join(ctx context.Context, code, connID string, player Player) error {
	return c.dispatch(code, func() error {
		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				c.out.Send(connID, EventError, "Room not found")
				return err
			}
			return fmt.Errorf("join room %s: %w", code, err)
		}

		if i := room.indexOf(player.UserID); i >= 0 {
			room.Players[i].ConnID = connID
		} else {
			if room.MaxPlayers > 0 && len(room.Players) >= room.MaxPlayers {
				c.out.Send(connID, EventError, "Room is full")
				return ErrRoomFull
			}
			player.ConnID = connID
			room.Players = append(room.Players, player)
		}

		if err := c.rooms.SaveRoom(ctx, room); err != nil {
			return fmt.Errorf("join room %s: %w", code, err)
		}

		c.out.Attach(code, connID)
		c.out.Broadcast(code, EventPlayerJoined, PlayerJoinedPayload{Players: room.Players, HostID: room.HostID})

		session, created := c.sessions.GetOrCreate(code, room.Players)
		session.ensureScores(room.Players)
		session.roster = room.Players
		if created {
			log.Info().Str("room", code).Int("players", len(room.Players)).Msg("game session created")
		}

		c.out.Broadcast(code, EventScoresUpdated, session.ScoreTable(room.Players))
		c.saveSnapshot(ctx, session)

		log.Info().Str("room", code).Uint("user", player.UserID).Str("conn", connID).Msg("player joined")
		return nil
	})
}

// Leave removes userID from the room. The last player out deletes the room
// and its session; a departing host hands over to the first remaining player.
func (c *Coordinator) Leave(ctx context.Context, code, connID string, userID uint) error {
	return c.dispatch(code, func() error {
		c.out.Detach(code, connID)

		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			return c.dropped(code, "leave", err)
		}

		if i := room.indexOf(userID); i >= 0 {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
		}

		if len(room.Players) == 0 {
			if err := c.rooms.DeleteRoom(ctx, code); err != nil {
				return fmt.Errorf("delete room %s: %w", code, err)
			}
			c.sessions.Delete(code)
			c.deleteSnapshot(ctx, code)
			log.Info().Str("room", code).Msg("room deleted, no players left")
			return nil
		}

		if room.HostID == userID {
			room.HostID = room.Players[0].UserID
			log.Info().Str("room", code).Uint("host", room.HostID).Msg("host reassigned")
		}
		if err := c.rooms.SaveRoom(ctx, room); err != nil {
			return fmt.Errorf("leave room %s: %w", code, err)
		}

		c.out.Broadcast(code, EventPlayerJoined, PlayerJoinedPayload{Players: room.Players, HostID: room.HostID})
		log.Info().Str("room", code).Uint("user", userID).Msg("player left")
		return nil
	})
}

// StartGame marks the room as playing. The session is not affected.
func (c *Coordinator) StartGame(ctx context.Context, code string) error {
	return c.dispatch(code, func() error {
		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			return c.dropped(code, "start game", err)
		}
		if err := c.rooms.SetStatus(ctx, code, StatusPlaying); err != nil {
			return fmt.Errorf("start game %s: %w", code, err)
		}

		if c.stats != nil {
			ids := make([]uint, 0, len(room.Players))
			for _, p := range room.Players {
				ids = append(ids, p.UserID)
			}
			if err := c.stats.RecordGameStarted(ctx, ids); err != nil {
				log.Warn().Err(err).Str("room", code).Msg("failed to record games played")
			}
		}

		log.Info().Str("room", code).Msg("game started")
		c.out.Broadcast(code, EventGameStarted, nil)
		return nil
	})
}

// Spin selects the next target player.
func (c *Coordinator) Spin(ctx context.Context, code string) error {
	return c.dispatch(code, func() error {
		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			return c.dropped(code, "spin", err)
		}
		session, ok := c.sessions.Get(code)
		if !ok {
			return ErrSessionNotFound
		}

		session.roster = room.Players
		spin, ok := SelectTarget(session, room.Players, c.rng)
		if !ok {
			return nil
		}

		log.Debug().Str("room", code).Uint("target", spin.TargetPlayerID).Uint64("turn", session.generation).Msg("bottle spun")
		c.out.Broadcast(code, EventSpinResult, SpinResultPayload{
			Angle:            spin.Angle,
			TargetPlayerID:   spin.TargetPlayerID,
			TargetPlayerName: spin.TargetPlayerName,
		})
		c.saveSnapshot(ctx, session)
		return nil
	})
}

// FlipCoin decides truth or dare and starts a fresh question cycle.
func (c *Coordinator) FlipCoin(ctx context.Context, code string) error {
	return c.dispatch(code, func() error {
		session, ok := c.sessions.Get(code)
		if !ok {
			return ErrSessionNotFound
		}

		flip := ChooseTaskType(session, c.rng)

		log.Debug().Str("room", code).Str("task", string(flip.TaskType)).Msg("coin flipped")
		c.out.Broadcast(code, EventCoinFlipResult, CoinFlipPayload{Side: flip.Side, TaskType: flip.TaskType})
		c.saveSnapshot(ctx, session)
		return nil
	})
}

// InitTaskSession seeds target and task type from a client, but only fields
// the server has not set itself.
func (c *Coordinator) InitTaskSession(ctx context.Context, code string, targetID uint, targetName string, taskType TaskType) error {
	return c.dispatch(code, func() error {
		session, ok := c.sessions.Get(code)
		if !ok {
			return ErrSessionNotFound
		}

		if session.TargetPlayerID == 0 {
			session.TargetPlayerID = targetID
		}
		if session.TargetPlayerName == "" {
			session.TargetPlayerName = targetName
		}
		if session.TaskType == "" && taskType.Valid() {
			session.TaskType = taskType
		}

		c.out.Broadcast(code, EventTaskSessionReady, TaskSessionReadyPayload{TaskType: session.TaskType})
		c.saveSnapshot(ctx, session)
		return nil
	})
}

// SubmitQuestion collects a question for the current target.
func (c *Coordinator) SubmitQuestion(ctx context.Context, code string, userID uint, userName, text string) error {
	return c.dispatch(code, func() error {
		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			return c.dropped(code, "submit question", err)
		}
		session, ok := c.sessions.Get(code)
		if !ok {
			return ErrSessionNotFound
		}

		session.roster = room.Players
		outcome := SubmitQuestion(session, userID, userName, text, len(room.Players)-1, c.rng)

		c.out.Broadcast(code, EventQuestionsUpdated, QuestionsUpdatedPayload{
			Questions: outcome.Progress.Questions,
			Total:     outcome.Progress.Total,
			Current:   outcome.Progress.Current,
		})
		if outcome.Selected != nil {
			log.Debug().Str("room", code).Str("asked_by", outcome.Selected.AskedBy).Msg("question selected")
			c.out.Broadcast(code, EventQuestionSelected, QuestionSelectedPayload{
				Question: outcome.Selected.Question,
				AskedBy:  outcome.Selected.AskedBy,
			})
		}
		c.saveSnapshot(ctx, session)
		return nil
	})
}

// Vote records a complete/incomplete vote on the current task.
func (c *Coordinator) Vote(ctx context.Context, code string, userID uint, vote Vote) error {
	if !vote.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVote, vote)
	}

	return c.dispatch(code, func() error {
		room, err := c.rooms.FindRoom(ctx, code)
		if err != nil {
			return c.dropped(code, "vote", err)
		}
		session, ok := c.sessions.Get(code)
		if !ok {
			return ErrSessionNotFound
		}

		session.roster = room.Players
		outcome := CastVote(session, userID, vote, len(room.Players)-1, c.rng)

		c.out.Broadcast(code, EventVotesUpdated, VotesUpdatedPayload{
			CompletedVotes:  outcome.Tally.CompletedVotes,
			IncompleteVotes: outcome.Tally.IncompleteVotes,
			TotalVotes:      outcome.Tally.TotalVotes,
			Required:        outcome.Tally.Required,
		})

		if outcome.Result != nil {
			result := *outcome.Result
			log.Info().Str("room", code).Uint("target", session.TargetPlayerID).Str("result", string(result)).Msg("task resolved")

			c.out.Broadcast(code, EventScoresUpdated, session.ScoreTable(room.Players))
			c.out.Broadcast(code, EventTaskResult, TaskResultPayload{Result: result})
			c.recordResult(ctx, session.TargetPlayerID, result)
			c.scheduleReset(session)
		}
		c.saveSnapshot(ctx, session)
		return nil
	})
}

// CompleteTask lets the target announce they are done with their task.
func (c *Coordinator) CompleteTask(ctx context.Context, code string) error {
	return c.dispatch(code, func() error {
		if !c.sessions.Has(code) {
			return ErrSessionNotFound
		}
		c.out.Broadcast(code, EventTurnEnded, nil)
		return nil
	})
}

// scheduleReset clears the turn after the result delay. The reset carries the
// generation it was scheduled in and is dropped if a newer turn has begun or
// the session has been replaced.
func (c *Coordinator) scheduleReset(session *GameSession) {
	code := session.Code
	generation := session.generation

	session.cancelReset()
	session.resetTimer = time.AfterFunc(c.resultDelay, func() {
		_ = c.dispatch(code, func() error {
			current, ok := c.sessions.Get(code)
			if !ok || current != session || current.generation != generation {
				log.Debug().Str("room", code).Uint64("turn", generation).Msg("stale turn reset skipped")
				return nil
			}

			current.resetTimer = nil
			current.resetTurn()
			c.out.Broadcast(code, EventTurnComplete, nil)
			c.saveSnapshot(context.Background(), current)
			return nil
		})
	})
}

func (c *Coordinator) recordResult(ctx context.Context, targetID uint, result Result) {
	if c.stats == nil || targetID == 0 {
		return
	}
	if err := c.stats.RecordTaskResult(ctx, targetID, result == ResultComplete); err != nil {
		log.Warn().Err(err).Uint("user", targetID).Msg("failed to record task result")
	}
}

// dropped reports why an action was not applied. Missing rooms are expected
// for late events and only logged at debug level.
func (c *Coordinator) dropped(code, action string, err error) error {
	if errors.Is(err, ErrRoomNotFound) {
		log.Debug().Str("room", code).Str("action", action).Msg("room not found, action ignored")
		return err
	}
	log.Error().Err(err).Str("room", code).Str("action", action).Msg("room directory failure, action dropped")
	return fmt.Errorf("%s %s: %w", action, code, err)
}

func (c *Coordinator) saveSnapshot(ctx context.Context, session *GameSession) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(ctx, session.Code, session.Snapshot()); err != nil {
		log.Warn().Err(err).Str("room", session.Code).Msg("failed to store session snapshot")
	}
}

func (c *Coordinator) deleteSnapshot(ctx context.Context, code string) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Delete(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to delete session snapshot")
	}
}
