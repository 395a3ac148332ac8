package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageConstructors(t *testing.T) {
	t.Run("user joined", func(t *testing.T) {
		msg := NewUserJoined("alice", 2, []string{"bob", "alice"})

		assert.NotNil(t, msg.UserJoined, "expected userJoined event")
		assert.False(t, msg.Timestamp.IsZero(), "expected timestamp to be set")
		assert.Equal(t, "alice", msg.UserJoined.Username, "expected username")
		assert.Equal(t, 2, msg.UserJoined.UserCount, "expected count")
		assert.Equal(t, []string{"bob", "alice"}, msg.UserJoined.Users, "expected roster")
		assert.Equal(t, "alice has joined the chat", msg.UserJoined.Notice, "expected join notice")
	})

	t.Run("user left", func(t *testing.T) {
		msg := NewUserLeft("alice", 1, []string{"bob"})

		assert.NotNil(t, msg.UserLeft, "expected userLeft event")
		assert.Equal(t, "alice", msg.UserLeft.Username, "expected username")
		assert.Equal(t, 1, msg.UserLeft.UserCount, "expected count")
		assert.Equal(t, []string{"bob"}, msg.UserLeft.Users, "expected roster")
		assert.Equal(t, "alice has left the chat", msg.UserLeft.Notice, "expected leave notice")
	})

	t.Run("typing", func(t *testing.T) {
		msg := NewUserTyping("alice")
		assert.NotNil(t, msg.UserTyping, "expected userTyping event")
		assert.Equal(t, "alice", msg.UserTyping.Username, "expected username")

		msg = NewUserStoppedTyping("alice")
		assert.NotNil(t, msg.UserStoppedTyping, "expected userStoppedTyping event")
		assert.Equal(t, "alice", msg.UserStoppedTyping.Username, "expected username")
	})

	t.Run("reaction", func(t *testing.T) {
		msg := NewReaction("msg-1", "👍", 4, "bob")

		assert.NotNil(t, msg.AddReaction, "expected addReaction event")
		assert.Equal(t, "msg-1", msg.AddReaction.MessageId, "expected message id")
		assert.Equal(t, "👍", msg.AddReaction.Emoji, "expected emoji")
		assert.Equal(t, 4, msg.AddReaction.Count, "expected count")
		assert.Equal(t, "bob", msg.AddReaction.Username, "expected reacting username")
	})

	t.Run("error", func(t *testing.T) {
		msg := ErrEvent(errors.New("boom"))

		assert.NotNil(t, msg.Error, "expected error event")
		assert.Equal(t, "boom", msg.Error.Reason, "expected reason to carry the error text")
	})
}
