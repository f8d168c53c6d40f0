package services

import (
	"context"
	"strings"
	"testing"

	"truthordare/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRoomCode(t *testing.T) {
	for range 50 {
		code, err := generateRoomCode()
		require.NoError(t, err)
		assert.Len(t, code, roomCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(roomCodeChars, r), "unexpected %q in %s", r, code)
		}
	}
}

func TestRoomService_CreateRoom(t *testing.T) {
	db := setupPostgres(t)
	host := createUser(t, db, "ana")
	rooms := NewRoomService(db)

	room, err := rooms.CreateRoom(host.ID, &CreateRoomRequest{MaxPlayers: 4})
	require.NoError(t, err)

	assert.Len(t, room.Code, roomCodeLength)
	assert.Equal(t, game.StatusWaiting, room.Status)
	assert.Equal(t, 4, room.MaxPlayers)
	assert.Equal(t, defaultTurnTime, room.TurnDuration)
	assert.Equal(t, "ana", room.Host.Username)
	assert.Empty(t, room.Players)

	again, err := rooms.GetRoomByCode(strings.ToLower(room.Code))
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID)
}

func TestRoomService_FindUnknownRoom(t *testing.T) {
	db := setupPostgres(t)
	rooms := NewRoomService(db)

	_, err := rooms.FindRoom(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	_, err = rooms.GetRoomByCode("NOPE00")
	assert.ErrorIs(t, err, game.ErrRoomNotFound)

	assert.ErrorIs(t, rooms.SetStatus(context.Background(), "NOPE00", game.StatusPlaying), game.ErrRoomNotFound)
	assert.ErrorIs(t, rooms.SaveRoom(context.Background(), &game.Room{Code: "NOPE00"}), game.ErrRoomNotFound)
}

func TestRoomService_SaveRoomReplacesRoster(t *testing.T) {
	db := setupPostgres(t)
	ana := createUser(t, db, "ana")
	ben := createUser(t, db, "ben")
	rooms := NewRoomService(db)
	ctx := context.Background()

	created, err := rooms.CreateRoom(ana.ID, &CreateRoomRequest{})
	require.NoError(t, err)

	room, err := rooms.FindRoom(ctx, created.Code)
	require.NoError(t, err)
	room.Players = []game.Player{
		{UserID: ben.ID, ConnID: "conn-ben", Name: "ben"},
		{UserID: ana.ID, ConnID: "conn-ana", Name: "ana", Avatar: "fox"},
	}
	require.NoError(t, rooms.SaveRoom(ctx, room))

	loaded, err := rooms.FindRoom(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, room.Players, loaded.Players)
	assert.Equal(t, defaultMaxPlayer, loaded.MaxPlayers)

	loaded.Players = loaded.Players[1:]
	loaded.HostID = ana.ID
	require.NoError(t, rooms.SaveRoom(ctx, loaded))

	final, err := rooms.FindRoom(ctx, created.Code)
	require.NoError(t, err)
	require.Len(t, final.Players, 1)
	assert.Equal(t, "ana", final.Players[0].Name)
	assert.Equal(t, ana.ID, final.HostID)
}

func TestRoomService_StatusAndDelete(t *testing.T) {
	db := setupPostgres(t)
	ana := createUser(t, db, "ana")
	rooms := NewRoomService(db)
	ctx := context.Background()

	created, err := rooms.CreateRoom(ana.ID, &CreateRoomRequest{})
	require.NoError(t, err)

	require.NoError(t, rooms.SetStatus(ctx, created.Code, game.StatusPlaying))
	room, err := rooms.FindRoom(ctx, created.Code)
	require.NoError(t, err)
	assert.Equal(t, game.StatusPlaying, room.Status)

	require.NoError(t, rooms.DeleteRoom(ctx, created.Code))
	require.NoError(t, rooms.DeleteRoom(ctx, created.Code))
	_, err = rooms.FindRoom(ctx, created.Code)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
}

// A coordinator backed by the real directory keeps the persisted roster in
// step with joins and leaves.
func TestRoomService_AsCoordinatorDirectory(t *testing.T) {
	db := setupPostgres(t)
	ana := createUser(t, db, "ana")
	ben := createUser(t, db, "ben")
	rooms := NewRoomService(db)
	ctx := context.Background()

	created, err := rooms.CreateRoom(ana.ID, &CreateRoomRequest{})
	require.NoError(t, err)

	hub := NewHub()
	coordinator := game.NewCoordinator(rooms, hub, game.CoordinatorOptions{})

	require.NoError(t, coordinator.Join(ctx, created.Code, "conn-ana", game.Player{UserID: ana.ID, Name: "ana"}))
	require.NoError(t, coordinator.Join(ctx, created.Code, "conn-ben", game.Player{UserID: ben.ID, Name: "ben"}))
	require.NoError(t, coordinator.Leave(ctx, created.Code, "conn-ana", ana.ID))

	room, err := rooms.FindRoom(ctx, created.Code)
	require.NoError(t, err)
	require.Len(t, room.Players, 1)
	assert.Equal(t, ben.ID, room.HostID)
	assert.True(t, coordinator.Sessions().Has(created.Code))

	require.NoError(t, coordinator.Leave(ctx, created.Code, "conn-ben", ben.ID))
	_, err = rooms.FindRoom(ctx, created.Code)
	assert.ErrorIs(t, err, game.ErrRoomNotFound)
	assert.False(t, coordinator.Sessions().Has(created.Code))
}
