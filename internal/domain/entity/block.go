package entity

import "time"

type Block struct {
	BlockerID string    `json:"blocker_id" firestore:"blockerId"`
	BlockedID string    `json:"blocked_id" firestore:"blockedId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
