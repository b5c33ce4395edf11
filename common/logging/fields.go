package logging

import "log/slog"

// Shared field names so log lines stay queryable across services.
const (
	FieldService   = "service"
	FieldUserID    = "user_id"
	FieldUsername  = "username"
	FieldRoomID    = "room_id"
	FieldMessageID = "message_id"
	FieldEventID   = "event_id"
	FieldSubject   = "subject"
	FieldIP        = "ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// UserID returns a slog attribute for the user ID.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// Username returns a slog attribute for the username.
func Username(name string) slog.Attr {
	return slog.String(FieldUsername, name)
}

// RoomID returns a slog attribute for the room ID.
func RoomID(id string) slog.Attr {
	return slog.String(FieldRoomID, id)
}

// MessageID returns a slog attribute for the message ID.
func MessageID(id string) slog.Attr {
	return slog.String(FieldMessageID, id)
}

// EventID returns a slog attribute for an event ID.
func EventID(id string) slog.Attr {
	return slog.String(FieldEventID, id)
}

// Subject returns a slog attribute for a broker subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// IP returns a slog attribute for the client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for elapsed time in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
