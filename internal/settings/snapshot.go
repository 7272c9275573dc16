package settings

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

// snapshot is an immutable view of the settings table.
type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Pointer[snapshot]

func init() {
	current.Store(&snapshot{values: map[string]json.RawMessage{}})
}

// StoreDBConfig replaces the in-memory snapshot. Values are copied; blank keys are dropped.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := &snapshot{updatedAt: updatedAt.UTC(), values: make(map[string]json.RawMessage, len(values))}
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next.values[key] = bytes.Clone(v)
	}
	current.Store(next)
}

// DBConfigUpdatedAt returns the newest updated_at seen in the last refresh.
func DBConfigUpdatedAt() time.Time {
	return current.Load().updatedAt
}

// DBConfigValue returns a copy of the raw value stored for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	val, ok := current.Load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(val), true
}
