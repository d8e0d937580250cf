package xslog

import (
	"log/slog"
	"time"
)

const (
	keyError = "error"
)

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}

func UserID(id string) slog.Attr {
	const userIDKey = "user_id"
	return slog.String(userIDKey, id)
}

func RemoteUserID(id string) slog.Attr {
	const remoteUserIDKey = "remote_user_id"
	return slog.String(remoteUserIDKey, id)
}

func Provider(slug string) slog.Attr {
	const providerKey = "provider"
	return slog.String(providerKey, slug)
}

func Event(name string) slog.Attr {
	const eventKey = "event"
	return slog.String(eventKey, name)
}

func MessageType(t string) slog.Attr {
	const messageTypeKey = "message_type"
	return slog.String(messageTypeKey, t)
}

func Status(s string) slog.Attr {
	const statusKey = "status"
	return slog.String(statusKey, s)
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func Start(t time.Time) slog.Attr {
	const startKey = "start"
	return slog.Time(startKey, t)
}

func End(t time.Time) slog.Attr {
	const endKey = "end"
	return slog.Time(endKey, t)
}

func URL(u string) slog.Attr {
	const urlKey = "url"
	return slog.String(urlKey, u)
}

func SurfaceID(id string) slog.Attr {
	const surfaceIDKey = "surface_id"
	return slog.String(surfaceIDKey, id)
}
