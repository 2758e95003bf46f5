package config

import (
	"time"

	"github.com/iliyamo/smartpark/internal/realtime"
)

// LoadRealtimeConfig reads REALTIME_* variables into hub options.
func LoadRealtimeConfig() realtime.Options {
	def := realtime.DefaultOptions()
	pong := envDur("REALTIME_PONG_WAIT", def.PongWait)
	return realtime.Options{
		RoleFiltering:  envBool("REALTIME_ROLE_FILTERING", def.RoleFiltering),
		SendBuffer:     envInt("REALTIME_SEND_BUFFER", def.SendBuffer),
		WriteWait:      envDur("REALTIME_WRITE_WAIT", def.WriteWait),
		PongWait:       pong,
		PingPeriod:     envDur("REALTIME_PING_PERIOD", pong*9/10),
		MaxMessageSize: int64(envInt("REALTIME_MAX_MESSAGE_BYTES", int(def.MaxMessageSize))),
	}
}

// AllowedOrigins lists origins accepted on the websocket upgrade.  An empty
// list accepts any origin, which the mobile client needs.
func AllowedOrigins() []string {
	return envList("REALTIME_ALLOWED_ORIGINS", "")
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
func ShutdownTimeout() time.Duration {
	return envDur("SHUTDOWN_TIMEOUT", 10*time.Second)
}
