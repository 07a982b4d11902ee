package entity

import "time"

// InboxEntry is the per-user summary of a conversation's latest activity.
// Every write path produces this one shape.
type InboxEntry struct {
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	OtherUserID    string    `json:"other_user_id" firestore:"otherUserId"`
	ListingID      string    `json:"listing_id" firestore:"listingId"`
	ListingTitle   string    `json:"listing_title" firestore:"listingTitle"`
	LastMessage    string    `json:"last_message" firestore:"lastMessage"`
	LastSenderID   string    `json:"last_sender_id" firestore:"lastSenderId"`
	Timestamp      time.Time `json:"timestamp" firestore:"timestamp"`
}

// InboxEntriesFor builds the entry of each participant after msg was
// appended to conv.
func InboxEntriesFor(conv *Conversation, msg *Message) map[string]*InboxEntry {
	entries := make(map[string]*InboxEntry, len(conv.Participants))
	for _, userID := range conv.Participants {
		entries[userID] = &InboxEntry{
			ConversationID: conv.ID,
			OtherUserID:    conv.OtherParticipant(userID),
			ListingID:      conv.ListingID,
			ListingTitle:   conv.ListingTitle,
			LastMessage:    msg.Text,
			LastSenderID:   msg.SenderID,
			Timestamp:      msg.Timestamp,
		}
	}
	return entries
}
