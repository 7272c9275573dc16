package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one permission-gated admin route.
type Definition struct {
	Key    string // "METHOD /full/path".
	Method string // HTTP method.
	Path   string // gin route path.
	Label  string // Human-readable name.
	Module string // Console section.
}

const adminPrefix = "/v0/admin"

// Route modules.
const (
	moduleUsers    = "users"
	moduleLedger   = "ledger"
	moduleResets   = "resets"
	moduleAudit    = "audit"
	moduleAdmins   = "admins"
	moduleSettings = "settings"
	moduleSystem   = "system"
)

var definitions = []Definition{
	newDefinition(http.MethodGet, "/users", "List users", moduleUsers),
	newDefinition(http.MethodGet, "/users/:id", "View user", moduleUsers),
	newDefinition(http.MethodGet, "/users/:id/credits", "View user credits", moduleUsers),
	newDefinition(http.MethodPost, "/users/:id/credit-packages", "Grant credit package", moduleLedger),
	newDefinition(http.MethodPost, "/users/:id/revocations", "Revoke credits", moduleLedger),
	newDefinition(http.MethodPost, "/users/:id/refunds", "Refund transaction", moduleLedger),
	newDefinition(http.MethodPost, "/users/:id/membership", "Activate membership", moduleLedger),
	newDefinition(http.MethodPost, "/users/:id/membership/cancel", "Cancel membership", moduleLedger),
	newDefinition(http.MethodPost, "/resets/sweep", "Run reset sweep", moduleResets),
	newDefinition(http.MethodGet, "/operation-logs", "List operation logs", moduleAudit),
	newDefinition(http.MethodGet, "/admins", "List admins", moduleAdmins),
	newDefinition(http.MethodPost, "/admins", "Create admin", moduleAdmins),
	newDefinition(http.MethodPut, "/admins/:id", "Update admin", moduleAdmins),
	newDefinition(http.MethodPost, "/admins/:id/disable", "Disable admin", moduleAdmins),
	newDefinition(http.MethodPost, "/admins/:id/enable", "Enable admin", moduleAdmins),
	newDefinition(http.MethodGet, "/settings", "List settings", moduleSettings),
	newDefinition(http.MethodPut, "/settings/:key", "Update setting", moduleSettings),
	newDefinition(http.MethodGet, "/permissions", "List permissions", moduleSystem),
}

func newDefinition(method, path, label, module string) Definition {
	full := adminPrefix + path
	return Definition{Key: Key(method, full), Method: method, Path: full, Label: label, Module: module}
}

// Key builds the permission key for a method and full route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// NormalizePermissions trims, deduplicates and sorts permission keys.
func NormalizePermissions(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects unknown permission keys.
func ValidatePermissions(keys []string) error {
	known := DefinitionMap()
	for _, key := range keys {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("unknown permission %q", key)
		}
	}
	return nil
}

// MarshalPermissions encodes permission keys as a JSON array.
func MarshalPermissions(keys []string) ([]byte, error) {
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

// ParsePermissions decodes a JSON permission column. Invalid payloads yield no permissions.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var keys []string
	if errUnmarshal := json.Unmarshal(raw, &keys); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(keys)
}

// HasPermission reports whether key is among granted.
func HasPermission(granted []string, key string) bool {
	for _, item := range granted {
		if item == key {
			return true
		}
	}
	return false
}
