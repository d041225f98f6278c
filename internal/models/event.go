package models

type EventType string

const (
	EventNewMessage  EventType = "new-message"
	EventUserOnline  EventType = "user-online"
	EventUserOffline EventType = "user-offline"
	EventUsersList   EventType = "users-list"
	EventUserTyping  EventType = "user-typing"
)

// PresenceInfo is one entry of a users-list roster.
type PresenceInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
}

// Event is the outbound envelope written to connections. Only the fields
// relevant to the event type are set.
type Event struct {
	Type        EventType      `json:"type"`
	Message     *Message       `json:"message,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	DisplayName string         `json:"displayName,omitempty"`
	Typing      *bool          `json:"typing,omitempty"`
	Users       []PresenceInfo `json:"users,omitempty"`
}

// Inbound client event types.
const (
	ClientJoinRoom    = "join-room"
	ClientSendMessage = "send-message"
	ClientTypingStart = "typing-start"
	ClientTypingStop  = "typing-stop"
)

// ClientEvent is the inbound envelope read from connections.
type ClientEvent struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId,omitempty"`
	Content string `json:"content,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func NewMessageEvent(msg *Message) Event {
	return Event{Type: EventNewMessage, Message: msg}
}

func PresenceEvent(t EventType, identity Identity) Event {
	return Event{Type: t, UserID: identity.ID, DisplayName: identity.DisplayName}
}

func TypingEvent(identity Identity, typing bool) Event {
	return Event{
		Type:        EventUserTyping,
		UserID:      identity.ID,
		DisplayName: identity.DisplayName,
		Typing:      &typing,
	}
}

func RosterEvent(users []PresenceInfo) Event {
	return Event{Type: EventUsersList, Users: users}
}
