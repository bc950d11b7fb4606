package model

// EventName identifies a connection event on the wire
type EventName string

const (
	// Inbound events
	EventWatch EventName = "player:watch"
	EventJoin  EventName = "player:join"
	EventEdit  EventName = "player:edit"
	EventLink  EventName = "player:link"
	EventQuit  EventName = "player:quit"
	EventReady EventName = "player:ready"

	// Outbound events
	EventCount  EventName = "player:count"
	EventUpdate EventName = "player:update"
	EventError  EventName = "player:error"
)

// Request is one inbound connection event with its typed payload.
// The set of implementations is closed to this package.
type Request interface {
	Event() EventName
	isRequest()
}

// WatchRequest enters or leaves the watching room
type WatchRequest struct {
	Watching bool
}

// JoinRequest registers a new player bound to the connection
type JoinRequest struct {
	Username string
}

// EditRequest renames the player bound to the connection
type EditRequest struct {
	Username string
}

// LinkRequest reclaims a player by credential
type LinkRequest struct {
	Credential Credential
}

// QuitRequest removes the player bound to the connection
type QuitRequest struct{}

// ReadyRequest sets readiness; a nil Ready toggles it
type ReadyRequest struct {
	Ready *bool
}

func (WatchRequest) Event() EventName { return EventWatch }
func (JoinRequest) Event() EventName  { return EventJoin }
func (EditRequest) Event() EventName  { return EventEdit }
func (LinkRequest) Event() EventName  { return EventLink }
func (QuitRequest) Event() EventName  { return EventQuit }
func (ReadyRequest) Event() EventName { return EventReady }

func (WatchRequest) isRequest() {}
func (JoinRequest) isRequest()  {}
func (EditRequest) isRequest()  {}
func (LinkRequest) isRequest()  {}
func (QuitRequest) isRequest()  {}
func (ReadyRequest) isRequest() {}

// OutboundEvent is a server-to-client event
type OutboundEvent struct {
	Name EventName
	Data any
}

// CountEvent carries the roster size to watchers
func CountEvent(count int) OutboundEvent {
	return OutboundEvent{Name: EventCount, Data: count}
}

// UpdateEvent carries the connection's own player view. A nil view encodes as null.
func UpdateEvent(view any) OutboundEvent {
	return OutboundEvent{Name: EventUpdate, Data: view}
}

// ErrorEvent carries a user-facing error message
func ErrorEvent(message string) OutboundEvent {
	return OutboundEvent{Name: EventError, Data: message}
}
