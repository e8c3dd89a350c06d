package models

import "time"

// FriendshipStatus is the lifecycle state of a friend request
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship links two users. Only accepted friendships grant visibility.
type Friendship struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	FriendID  int64            `json:"friend_id" db:"friend_id"`
	Status    FriendshipStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Other returns the ID on the opposite side of the friendship from userID.
func (f *Friendship) Other(userID int64) int64 {
	if f.UserID == userID {
		return f.FriendID
	}
	return f.UserID
}

// Group is a named set of users, optionally bound to a Telegram group chat
type Group struct {
	ID        int64     `json:"id" db:"id"`
	ChatID    *int64    `json:"chat_id,omitempty" db:"chat_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	MemberIDs []int64   `json:"member_ids,omitempty"`
}

// GroupMember represents the join table between groups and users
type GroupMember struct {
	GroupID  int64     `json:"group_id" db:"group_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	Role     string    `json:"role" db:"role"` // "admin" or "member"
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
