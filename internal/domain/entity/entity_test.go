package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"zeta", "alpha"},
		{"Ab9xQ", "ab9xq"},
	}

	for _, p := range pairs {
		ab, err := ConversationID(p[0], p[1])
		require.NoError(t, err)
		ba, err := ConversationID(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}

	id, err := ConversationID("u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1_u2", id)
}

func TestConversationIDRejectsInvalidPairs(t *testing.T) {
	_, err := ConversationID("u1", "u1")
	assert.Error(t, err)

	_, err = ConversationID("", "u1")
	assert.Error(t, err)

	_, err = ConversationID("u_1", "u2")
	assert.Error(t, err)
}

func TestParticipantsFromID(t *testing.T) {
	a, b, err := ParticipantsFromID("u1_u2")
	require.NoError(t, err)
	assert.Equal(t, "u1", a)
	assert.Equal(t, "u2", b)

	_, _, err = ParticipantsFromID("u1")
	assert.Error(t, err)
	_, _, err = ParticipantsFromID("u1_u2_u3")
	assert.Error(t, err)
}

func TestOtherParticipant(t *testing.T) {
	conv := &Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}}

	assert.Equal(t, "u2", conv.OtherParticipant("u1"))
	assert.Equal(t, "u1", conv.OtherParticipant("u2"))
	assert.Equal(t, "", conv.OtherParticipant("u3"))
}

func TestInboxEntriesForBothParticipants(t *testing.T) {
	conv := &Conversation{ID: "u1_u2", Participants: []string{"u1", "u2"}, ListingID: "L1", ListingTitle: "Canal flat"}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := &Message{ConversationID: conv.ID, SenderID: "u1", Text: "hello", Timestamp: at}

	entries := InboxEntriesFor(conv, msg)

	require.Len(t, entries, 2)
	assert.Equal(t, "u2", entries["u1"].OtherUserID)
	assert.Equal(t, "u1", entries["u2"].OtherUserID)
	for _, e := range entries {
		assert.Equal(t, "hello", e.LastMessage)
		assert.Equal(t, "L1", e.ListingID)
		assert.Equal(t, "Canal flat", e.ListingTitle)
		assert.Equal(t, at, e.Timestamp)
	}
}

func TestNewMessageSnapshotsSender(t *testing.T) {
	at := time.Now()
	msg := NewMessage("u1_u2", &User{ID: "u1", DisplayName: "Ada", PhotoURL: "https://img/ada.png"}, "u1", "hi", at)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.Equal(t, "https://img/ada.png", msg.SenderImage)

	msg = NewMessage("u1_u2", nil, "u1", "hi", at)
	assert.Equal(t, DefaultDisplayName, msg.SenderName)
	assert.Equal(t, DefaultAvatarURL, msg.SenderImage)
}

func TestListingHelpers(t *testing.T) {
	l := &Listing{Address: "Prinsengracht 1", PostalCode: "1015 DK", City: "Amsterdam", Country: "Netherlands"}
	assert.Equal(t, "Prinsengracht 1, 1015 DK Amsterdam, Netherlands", l.PostalAddress())
	assert.False(t, l.HasCoordinates())

	l.SetCoordinates(52.37, 4.88)
	assert.True(t, l.HasCoordinates())
	assert.Equal(t, "/placeholder.jpg", l.CoverImage())

	assert.Equal(t, []string{"Wi-Fi", "TV"}, NormalizeAmenities([]string{" Wi-Fi", "TV", "Wi-Fi", ""}))
	assert.True(t, PropertyTypeStudio.Valid())
	assert.False(t, PropertyType("castle").Valid())
}
