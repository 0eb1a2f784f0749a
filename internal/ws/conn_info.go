package ws

import "time"

type ConnInfo struct {
	ConnID      string
	ProfileID   string
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) payload(reason string) map[string]any {
	return map[string]any{
		"ws": map[string]any{
			"conn_id":     i.ConnID,
			"duration_ms": time.Since(i.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]any{
			"username":  i.Username,
			"device_id": i.DeviceID,
			"ip":        i.IP,
		},
	}
}
