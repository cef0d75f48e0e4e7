package message

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant in this conversation")
	ErrEmptyMessage         = errors.New("message body is empty")
)
