package ws

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/gorilla/websocket"
)

// SafeWriter serializes concurrent writes to one websocket connection.
// Physics can briefly produce NaN coordinates; those are sanitized to
// zero instead of failing the whole frame.
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter wraps a connection.
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

// SendJSON writes v as one text message.
func (w *SafeWriter) SendJSON(v interface{}) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		if mapData, ok := v.(map[string]interface{}); ok {
			sanitizeMapValues(mapData)
			data, err = json.Marshal(mapData)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the underlying connection.
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}

// safeValue replaces NaN with a fallback.
func safeValue(value, fallback float64) float64 {
	if math.IsNaN(value) {
		return fallback
	}
	return value
}

// sanitizeMapValues recursively replaces NaN values with zero.
func sanitizeMapValues(data map[string]interface{}) {
	for k, v := range data {
		switch val := v.(type) {
		case float64:
			if math.IsNaN(val) {
				data[k] = 0.0
			}
		case map[string]interface{}:
			sanitizeMapValues(val)
		case []interface{}:
			for i, item := range val {
				if itemMap, ok := item.(map[string]interface{}); ok {
					sanitizeMapValues(itemMap)
				} else if itemFloat, ok := item.(float64); ok && math.IsNaN(itemFloat) {
					val[i] = 0.0
				}
			}
		}
	}
}
