package server

import (
	"errors"
	"time"
)

var errInvalidMessage = errors.New("invalid message format")

// ClientMessage is the tagged union of events a connection may send.
// Exactly one field is expected to be set.
type ClientMessage struct {
	Join        *JoinRequest     `json:"join,omitempty"`
	SendMessage *SendRequest     `json:"sendMessage,omitempty"`
	Typing      *TypingRequest   `json:"typing,omitempty"`
	StopTyping  *TypingRequest   `json:"stopTyping,omitempty"`
	AddReaction *ReactionRequest `json:"addReaction,omitempty"`
}

type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type SendRequest struct {
	Text string `json:"message"`
}

type TypingRequest struct{}

type ReactionRequest struct {
	MessageId string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// ServerMessage is the tagged union of events fanned out to
// connections.
type ServerMessage struct {
	Timestamp         time.Time      `json:"timestamp"`
	UserJoined        *PresenceEvent `json:"userJoined,omitempty"`
	UserLeft          *PresenceEvent `json:"userLeft,omitempty"`
	ReceiveMessage    *MessageEvent  `json:"receiveMessage,omitempty"`
	UserTyping        *TypingEvent   `json:"userTyping,omitempty"`
	UserStoppedTyping *TypingEvent   `json:"userStoppedTyping,omitempty"`
	AddReaction       *ReactionEvent `json:"addReaction,omitempty"`
	Error             *ErrorEvent    `json:"error,omitempty"`
}

// PresenceEvent carries the refreshed roster and count after a join or
// leave. Users are in join order.
type PresenceEvent struct {
	Username  string   `json:"username"`
	UserCount int      `json:"userCount"`
	Users     []string `json:"users"`
	Notice    string   `json:"message"`
}

// MessageEvent is a chat message stamped with the author's username,
// the server timestamp and a server-minted message id.
type MessageEvent struct {
	MessageId string    `json:"messageId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingEvent struct {
	Username string `json:"username"`
}

// ReactionEvent carries the authoritative tally for one
// (messageId, emoji) pair; recipients overwrite, never increment.
type ReactionEvent struct {
	MessageId string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Count     int    `json:"count"`
	Username  string `json:"username"`
}

type ErrorEvent struct {
	Reason string `json:"reason"`
}

func NewUserJoined(username string, count int, users []string) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		UserJoined: &PresenceEvent{
			Username:  username,
			UserCount: count,
			Users:     users,
			Notice:    username + " has joined the chat",
		},
	}
}

func NewUserLeft(username string, count int, users []string) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		UserLeft: &PresenceEvent{
			Username:  username,
			UserCount: count,
			Users:     users,
			Notice:    username + " has left the chat",
		},
	}
}

func NewUserTyping(username string) *ServerMessage {
	return &ServerMessage{
		Timestamp:  Now(),
		UserTyping: &TypingEvent{Username: username},
	}
}

func NewUserStoppedTyping(username string) *ServerMessage {
	return &ServerMessage{
		Timestamp:         Now(),
		UserStoppedTyping: &TypingEvent{Username: username},
	}
}

func NewReaction(messageId, emoji string, count int, username string) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		AddReaction: &ReactionEvent{
			MessageId: messageId,
			Emoji:     emoji,
			Count:     count,
			Username:  username,
		},
	}
}

// ErrEvent wraps a recoverable error for delivery to the originating
// connection only.
func ErrEvent(err error) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		Error:     &ErrorEvent{Reason: err.Error()},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
