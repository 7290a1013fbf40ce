// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package vartype

import (
	"encoding/json"
	"testing"
)

func TestVariable(t *testing.T) {
	t.Run("zero value is unset", func(t *testing.T) {
		var v VarFloat64
		if v.IsSet() {
			t.Error("expected variable to be unset")
		}
		if v.String() != Unset {
			t.Errorf("expected string to be %q, got %q", Unset, v.String())
		}
		if v.Ptr() != nil {
			t.Error("expected nil pointer for unset variable")
		}
		if v.ValueOr(42) != 42 {
			t.Errorf("expected fallback value, got %f", v.ValueOr(42))
		}
	})
	t.Run("set and reset", func(t *testing.T) {
		v := NewVariable(3.5)
		if !v.IsSet() || v.Value() != 3.5 {
			t.Errorf("expected variable to be set to 3.5, got %v", v)
		}
		if v.ValueOr(1) != 3.5 {
			t.Errorf("expected stored value, got %f", v.ValueOr(1))
		}
		v.Set(7)
		if ptr := v.Ptr(); ptr == nil || *ptr != 7 {
			t.Errorf("expected pointer to 7, got %v", ptr)
		}
		v.Reset()
		if v.IsSet() || v.Value() != 0 {
			t.Errorf("expected variable to be reset, got %v", v)
		}
	})
	t.Run("json encoding", func(t *testing.T) {
		type fix struct {
			Speed   VarFloat64 `json:"speed"`
			Heading VarFloat64 `json:"heading"`
		}
		data, err := json.Marshal(fix{Speed: NewVariable(12.5)})
		if err != nil {
			t.Fatalf("failed to marshal: %s", err)
		}
		if string(data) != `{"speed":12.5,"heading":null}` {
			t.Errorf("unexpected json: %s", data)
		}
		var decoded fix
		if err = json.Unmarshal([]byte(`{"speed":null,"heading":90}`), &decoded); err != nil {
			t.Fatalf("failed to unmarshal: %s", err)
		}
		if decoded.Speed.IsSet() || decoded.Heading.Value() != 90 {
			t.Errorf("unexpected decoded value: %+v", decoded)
		}
		if err = json.Unmarshal([]byte(`{"speed":"fast"}`), &decoded); err == nil {
			t.Error("expected error for invalid value")
		}
	})
}
