package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConversationIDSeparator joins the two participant ids.
const ConversationIDSeparator = "_"

// Conversation is a two-party thread tied to the listing that prompted it.
// Its id is derived from the participants, so A→B and B→A resolve to the
// same document.
type Conversation struct {
	ID            string    `json:"id" firestore:"id"`
	Participants  []string  `json:"participants" firestore:"participants"`
	ListingID     string    `json:"listing_id" firestore:"listingId"`
	ListingTitle  string    `json:"listing_title" firestore:"listingTitle"`
	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ConversationID sorts the two ids lexicographically and joins them.
func ConversationID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("conversation participants must not be empty")
	}
	if a == b {
		return "", fmt.Errorf("conversation requires two distinct participants")
	}
	if strings.Contains(a, ConversationIDSeparator) || strings.Contains(b, ConversationIDSeparator) {
		return "", fmt.Errorf("participant ids must not contain %q", ConversationIDSeparator)
	}

	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ConversationIDSeparator), nil
}

// ParticipantsFromID is the inverse of ConversationID.
func ParticipantsFromID(id string) (string, string, error) {
	parts := strings.Split(id, ConversationIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed conversation id %q", id)
	}
	return parts[0], parts[1], nil
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart of userID, or "" if userID is
// not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
