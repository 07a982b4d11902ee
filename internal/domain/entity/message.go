package entity

import (
	"fmt"
	"time"
)

// Message is append-only. SenderName and SenderImage are a snapshot of the
// sender's profile at send time and are never refreshed.
type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	Text           string    `json:"text" firestore:"text"`
	SenderName     string    `json:"sender_name" firestore:"senderName"`
	SenderImage    string    `json:"sender_image" firestore:"senderImage"`
	Timestamp      time.Time `json:"timestamp" firestore:"timestamp"`
}

// NewMessage builds a message with the sender snapshot taken from user.
func NewMessage(conversationID string, sender *User, senderID, text string, at time.Time) *Message {
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		SenderName:     sender.NameOrDefault(),
		SenderImage:    sender.PhotoOrDefault(),
		Timestamp:      at,
	}
}

func InterestMessage(listingTitle string) string {
	return fmt.Sprintf("Hi, I'm interested in your listing: %s", listingTitle)
}
