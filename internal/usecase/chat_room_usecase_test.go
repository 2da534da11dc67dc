package usecase

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketchat/internal/domain/entity"
	"marketchat/pkg/errors"
	"marketchat/pkg/utils"
)

func TestFindOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, created, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.ElementsMatch(t, []string{sellerID, buyerID}, first.ParticipantIDs)

	second, created, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// the owner reopening with the buyer lands in the same room
	reversed, created, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: sellerID, CounterpartID: buyerID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reversed.ID)

	active, err := f.rooms.ActiveParticipants(testCtx, first.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sellerID, buyerID}, active)
}

func TestFindOrCreateSeparateRoomPerBuyer(t *testing.T) {
	f := newFixture(t)

	a, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
	require.NoError(t, err)
	b, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyer2ID})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestFindOrCreateOwnerCannotOpenNewRoom(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: sellerID})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	// existing buyer rooms must not be handed to an owner who names nobody
	_, _, err = f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
	require.NoError(t, err)
	_, _, err = f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyer2ID})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		room, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: sellerID})
		assert.Nil(t, room)
		assert.True(t, errors.Is(err, errors.CodeForbidden))
	}

	f2 := newFixture(t)
	_, _, err = f2.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: sellerID, CounterpartID: sellerID})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	_, _, err = f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: sellerID, CounterpartID: buyerID})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestFindOrCreateUnknownSubjectOrUser(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: "missing", InitiatorID: buyerID})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, _, err = f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: "ghost"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestFindOrCreateConcurrentCallersShareRoom(t *testing.T) {
	f := newFixture(t)

	const callers = 20
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyerID})
			if assert.NoError(t, err) {
				ids[i] = room.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	rooms, err := f.store.Chats().ListRoomsByUser(testCtx, buyerID)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestLeaveForbiddenWhileReserved(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)
	f.store.PutProduct(&entity.Product{ID: productID, SellerID: sellerID, Status: entity.ProductReserved})

	err := f.rooms.Leave(testCtx, room.ID, buyerID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	active, err := f.rooms.ActiveParticipants(testCtx, room.ID)
	require.NoError(t, err)
	assert.Contains(t, active, buyerID)
}

func TestLeaveMarksExitedAndRoomStaysQueryable(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	require.NoError(t, f.rooms.Leave(testCtx, room.ID, buyerID))
	// leaving twice is harmless
	require.NoError(t, f.rooms.Leave(testCtx, room.ID, buyerID))

	active, err := f.rooms.ActiveParticipants(testCtx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sellerID}, active)

	summaries, total, err := f.rooms.ListRooms(testCtx, sellerID, utils.NewPaginationParams(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, room.ID, summaries[0].Room.ID)
}

func TestListRoomsHidesRoomsTheUserLeft(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)
	_, _, err := f.rooms.FindOrCreate(testCtx, FindOrCreateInput{SubjectID: productID, InitiatorID: buyer2ID})
	require.NoError(t, err)

	require.NoError(t, f.rooms.Leave(testCtx, room.ID, buyerID))

	summaries, total, err := f.rooms.ListRooms(testCtx, buyerID, utils.NewPaginationParams(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, summaries)

	summaries, total, err = f.rooms.ListRooms(testCtx, sellerID, utils.NewPaginationParams(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, summaries, 2)
}

func TestLeaveUnknownRoomOrParticipant(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	assert.True(t, errors.Is(f.rooms.Leave(testCtx, "missing", buyerID), errors.CodeNotFound))
	assert.True(t, errors.Is(f.rooms.Leave(testCtx, room.ID, buyer2ID), errors.CodeNotFound))
}

func TestMarkReadIsIdempotentAndConfirmsOnce(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)
	sellerConn := f.connect(t, sellerID)

	for _, text := range []string{"one", "two"} {
		_, err := f.messages.Ingest(testCtx, IngestInput{RoomID: room.ID, SenderID: sellerID, Content: text})
		require.NoError(t, err)
	}
	_, err := f.messages.Ingest(testCtx, IngestInput{RoomID: room.ID, SenderID: buyerID, Content: "mine"})
	require.NoError(t, err)

	updated, err := f.rooms.MarkRead(testCtx, room.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	updated, err = f.rooms.MarkRead(testCtx, room.ID, buyerID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	var receipts []decodedFrame
	for _, frame := range sellerConn.envelopes(t) {
		if frame.Type == FrameMessagesRead {
			receipts = append(receipts, frame)
		}
	}
	require.Len(t, receipts, 1)
	assert.Contains(t, string(receipts[0].Data), `"count":2`)

	messages, err := f.store.Chats().ListMessages(testCtx, room.ID)
	require.NoError(t, err)
	for _, m := range messages {
		assert.Equal(t, m.SenderID == sellerID, m.Read, m.Content)
	}
}

func TestMarkReadRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	_, err := f.rooms.MarkRead(testCtx, room.ID, buyer2ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestListRoomsPreviewAndUnread(t *testing.T) {
	f := newFixture(t)
	room := f.openRoom(t)

	_, err := f.messages.Ingest(testCtx, IngestInput{RoomID: room.ID, SenderID: sellerID, ImageURL: "https://img/1.png"})
	require.NoError(t, err)

	summaries, total, err := f.rooms.ListRooms(testCtx, buyerID, utils.NewPaginationParams(1, 10))
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, sellerID, summaries[0].CounterpartID)
	assert.Equal(t, entity.ImageContent, summaries[0].LastMessage)
	assert.True(t, summaries[0].HasUnread)
	assert.WithinDuration(t, time.Now(), summaries[0].LastMessageAt, time.Minute)

	empty, total, err := f.rooms.ListRooms(testCtx, buyerID, utils.NewPaginationParams(2, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Empty(t, empty)
}
