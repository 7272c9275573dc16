package permissions

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDefinitionMapIncludesLedgerPermissions(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"POST /v0/admin/users/:id/credit-packages",
		"POST /v0/admin/users/:id/revocations",
		"POST /v0/admin/users/:id/refunds",
		"POST /v0/admin/users/:id/membership/cancel",
		"POST /v0/admin/resets/sweep",
		"GET /v0/admin/operation-logs",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestDefinitionKeysAreUnique(t *testing.T) {
	t.Parallel()

	if got, want := len(DefinitionMap()), len(Definitions()); got != want {
		t.Fatalf("duplicate permission keys: %d unique of %d", got, want)
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	t.Parallel()

	keys := NormalizePermissions([]string{" GET /v0/admin/users ", "GET /v0/admin/users", "", "POST /v0/admin/resets/sweep"})
	if len(keys) != 2 || keys[0] != "GET /v0/admin/users" {
		t.Fatalf("unexpected normalized keys %v", keys)
	}
	if errValidate := ValidatePermissions(keys); errValidate != nil {
		t.Fatalf("validate known keys: %v", errValidate)
	}
	if errValidate := ValidatePermissions([]string{"DELETE /v0/admin/users/:id"}); errValidate == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestParsePermissions(t *testing.T) {
	t.Parallel()

	raw, errMarshal := MarshalPermissions([]string{"GET /v0/admin/users"})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	granted := ParsePermissions(datatypes.JSON(raw))
	if !HasPermission(granted, "GET /v0/admin/users") {
		t.Fatalf("expected permission in %v", granted)
	}
	if HasPermission(granted, "POST /v0/admin/resets/sweep") {
		t.Fatalf("unexpected permission")
	}
	if got := ParsePermissions(datatypes.JSON("{bad")); len(got) != 0 {
		t.Fatalf("expected no permissions for invalid json, got %v", got)
	}
}
