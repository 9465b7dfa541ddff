package wsutil

import "log/slog"

// SafeSend delivers data to a client send channel without blocking the
// game loop. A full channel drops the message (the slow client will
// resync from the next snapshot); a closed channel is recovered, since
// the room may still hold a reference to a disconnected player's
// channel during the reconnect grace window.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("send to closed channel", "tag", "ws", "recovered", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
