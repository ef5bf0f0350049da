package value

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestIsNothing(t *testing.T) {
	now := time.Now()
	f := 1.5
	i := int64(7)
	b := false
	pk := PKFromInt(3)

	tests := []struct {
		name    string
		value   Value
		nothing bool
	}{
		{"empty float", NewFloat(nil), true},
		{"float", NewFloat(&f), false},
		{"empty int", NewInt(nil), true},
		{"int", NewInt(&i), false},
		{"empty text", NewText(nil), true},
		{"text", NewText(str("x")), false},
		{"empty bool", NewBool(nil), true},
		{"false bool is present", NewBool(&b), false},
		{"empty time", NewTime(nil), true},
		{"time", NewTime(&now), false},
		{"empty enum", NewEnum([]string{"a", "b"}, nil), true},
		{"enum", NewEnum([]string{"a", "b"}, str("a")), false},
		{"empty pk", NewPrimaryKey(nil), true},
		{"pk", NewPrimaryKey(&pk), false},
		{"empty fk", NewForeignKey(ForeignKeyParams{Table: "users"}, nil), true},
		{"fk", NewForeignKey(ForeignKeyParams{Table: "users"}, &pk), false},
		{"opaque is always nothing", NewOpaque(json.RawMessage(`{"a":1}`)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.nothing, tt.value.IsNothing())
		})
	}
}

func TestUpdateWithString_KeepsKind(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		raw   string
	}{
		{"float", NewFloat(nil), "1.25"},
		{"int", NewInt(nil), "42"},
		{"text", NewText(nil), "hello"},
		{"bool", NewBool(nil), "anything"},
		{"time", NewTime(nil), "2024-05-01T10:30:00"},
		{"date", NewDate(nil), "2024-05-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := tt.value.UpdateWithString(tt.raw)
			assert.Equal(t, tt.value.Kind, updated.Kind)
			assert.False(t, updated.IsNothing())
		})
	}
}

func TestUpdateWithString_UnparseableYieldsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		raw   string
	}{
		{"float garbage", NewFloat(nil), "abc"},
		{"int garbage", NewInt(nil), "1.5"},
		{"time garbage", NewTime(nil), "not a time"},
		{"date garbage", NewDate(nil), "2024-13-99"},
		{"blank text", NewText(nil), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := tt.value.UpdateWithString(tt.raw)
			assert.True(t, updated.IsNothing(), "unparseable input must yield an empty value, not an error")
		})
	}
}

func TestUpdateWithString_BoolToggles(t *testing.T) {
	v := NewBool(nil)
	v = v.UpdateWithString("ignored")
	require.NotNil(t, v.Bool)
	assert.True(t, *v.Bool)

	v = v.UpdateWithString("also ignored")
	assert.False(t, *v.Bool)

	v = v.UpdateWithString("")
	assert.True(t, *v.Bool)
}

func TestUpdateWithString_ShortTimestampGetsSeconds(t *testing.T) {
	// A 16-character datetime-local input is missing seconds.
	v := NewTime(nil).UpdateWithString("2024-05-01T10:30")
	require.NotNil(t, v.Time)
	assert.Equal(t, "2024-05-01T10:30:00", v.Time.Format(TimeLayout))
}

func TestUpdateWithString_ForeignKeyDropsStaleLabel(t *testing.T) {
	pk := PKFromInt(7)
	v := NewForeignKey(ForeignKeyParams{Table: "users", PrimaryKeyName: "id", LabelColumn: "name"}, &pk)
	v = v.WithLabel("Ada")
	require.Equal(t, "Ada", v.String())

	v = v.UpdateWithString("9")
	assert.Nil(t, v.FKParams.Label)
	assert.Equal(t, "9", v.String())
}

func TestEncode(t *testing.T) {
	f := 19.99
	i := int64(3)
	b := true
	ts, _ := time.Parse(TimeLayout, "2024-05-01T10:30:00")
	pk := PKFromInt(1)
	spk := PKFromString("a1b2")

	tests := []struct {
		name  string
		value Value
		want  any
	}{
		{"float", NewFloat(&f), 19.99},
		{"int", NewInt(&i), int64(3)},
		{"text", NewText(str("x")), "x"},
		{"bool", NewBool(&b), true},
		{"time", NewTime(&ts), "2024-05-01T10:30:00"},
		{"date", NewDate(&ts), "2024-05-01"},
		{"pk int", NewPrimaryKey(&pk), int64(1)},
		{"pk string", NewPrimaryKey(&spk), "a1b2"},
		{"fk", NewForeignKey(ForeignKeyParams{Table: "users"}, &pk), int64(1)},
		{"empty encodes null", NewText(nil), nil},
		{"opaque encodes null", NewOpaque(json.RawMessage(`[1]`)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.Encode())
		})
	}
}

func TestString_ForeignKeyPrefersLabel(t *testing.T) {
	pk := PKFromInt(7)
	v := NewForeignKey(ForeignKeyParams{Table: "users", PrimaryKeyName: "id", LabelColumn: "name"}, &pk)
	assert.Equal(t, "7", v.String())

	v = v.WithLabel("Ada")
	assert.Equal(t, "Ada", v.String())
}

func TestToPrimaryKey(t *testing.T) {
	pk := PKFromInt(5)

	got, ok := NewPrimaryKey(&pk).ToPrimaryKey()
	require.True(t, ok)
	assert.True(t, got.Equal(pk))

	got, ok = NewForeignKey(ForeignKeyParams{Table: "users"}, &pk).ToPrimaryKey()
	require.True(t, ok)
	assert.True(t, got.Equal(pk))

	_, ok = NewText(str("5")).ToPrimaryKey()
	assert.False(t, ok)

	_, ok = NewPrimaryKey(nil).ToPrimaryKey()
	assert.False(t, ok)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		raw     string
		wantErr bool
		display string
	}{
		{"float", NewFloat(nil), `19.99`, false, "19.99"},
		{"int", NewInt(nil), `7`, false, "7"},
		{"text", NewText(nil), `"Widget"`, false, "Widget"},
		{"bool", NewBool(nil), `true`, false, "true"},
		{"time", NewTime(nil), `"2024-05-01T10:30:00"`, false, "2024-05-01T10:30:00"},
		{"date", NewDate(nil), `"2024-05-01"`, false, "2024-05-01"},
		{"int pk", NewPrimaryKey(nil), `12`, false, "12"},
		{"string pk", NewPrimaryKey(nil), `"u-7"`, false, "u-7"},
		{"null clears", NewText(nil), `null`, false, ""},
		{"type mismatch", NewInt(nil), `"seven"`, true, ""},
		{"bool mismatch", NewBool(nil), `"yes"`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.DecodeJSON(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.value.Kind, got.Kind)
			assert.Equal(t, tt.display, got.String())
		})
	}
}

func TestParsePK(t *testing.T) {
	assert.NotNil(t, ParsePK("42").Int)
	assert.NotNil(t, ParsePK("a1").Str)
	assert.True(t, ParsePK("42").Equal(PKFromInt(42)))
	assert.False(t, ParsePK("42").Equal(PKFromString("42")))
}
