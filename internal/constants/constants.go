package constants

import "time"

const (
	LiveCacheTTL    = 30 * time.Second
	DefaultCacheTTL = 5 * time.Minute
)

const (
	HeartbeatInterval = 25 * time.Second
	ReconnectDelay    = 4 * time.Second
	DialTimeout       = 10 * time.Second
	WriteTimeout      = 3 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

// WebSocket close codes with reserved local meaning. A normal closure is
// an intentional disconnect; the two 4xxx codes are terminal rejections
// from the server. None of them schedule a reconnect.
const (
	CloseNormal       = 1000
	CloseUnauthorized = 4401
	CloseForbidden    = 4403
)

// PingToken is the literal keep-alive frame the server understands.
// The server answers with a {"type":"pong"} event.
const PingToken = "ping"

const (
	NotificationBacklog = 50
)
