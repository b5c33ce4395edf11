// Package messaging defines standard subject names for the RelayRoom message bus.
package messaging

// Subject constants for the RelayRoom message bus.
// Follow the pattern: {domain}.{resource}.{action}
const (
	// Message lifecycle subjects - published by the chat service
	SubjectChatMessageCreated = "chat.message.created" // New message posted to a room
	SubjectChatMessageUpdated = "chat.message.updated" // Message body edited
	SubjectChatMessageDeleted = "chat.message.deleted" // Message removed

	// Room lifecycle subjects
	SubjectChatRoomCreated = "chat.room.created" // New room opened
	SubjectChatRoomUpdated = "chat.room.updated" // Room renamed or topic changed

	// Membership subjects
	SubjectChatMemberAdded   = "chat.member.added"   // User joined or was added to a room
	SubjectChatMemberRemoved = "chat.member.removed" // User left or was removed

	// Account subjects - published by the chat service's auth layer
	SubjectUserRegistered = "user.account.registered" // New account created
)

// QueueIndexerWorkers is the queue group for the search-index worker pool.
// Workers in the same queue group share messages (each message processed once).
const QueueIndexerWorkers = "indexer-workers"

// ChatMessageSubjects matches every message lifecycle subject with a wildcard.
// Example consumer: the indexer queue-subscribing to chat.message.>
const ChatMessageSubjects = "chat.message.>"

// RoomScopedSubject returns the per-room variant of a message subject, the
// form the chat service publishes on so consumers can subscribe to a single
// room. Example: chat.message.created.b1c2d3
func RoomScopedSubject(base, roomID string) string {
	return base + "." + roomID
}
