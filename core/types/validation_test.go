package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOptionValues(t *testing.T) {
	tests := []struct {
		name    string
		schema  JSONSchema
		value   any
		wantErr bool
	}{
		{"uint accepts big int", Uint(), big.NewInt(21000), false},
		{"uint rejects negative", Uint(), big.NewInt(-1), true},
		{"uint rejects string", Uint(), "abc", true},
		{"address accepts checksum", Address(), "0x44fA8E6f47987339850636F88629646662444217", false},
		{"address accepts common.Address", Address(), common.HexToAddress("0x01"), false},
		{"address rejects short hex", Address(), "0x1234", true},
		{"address rejects missing prefix", Address(), "44fA8E6f47987339850636F88629646662444217", true},
		{"bytes", String(FormatBytes), "0xa9059cbb", false},
		{"bytes odd length", String(FormatBytes), "0xabc", true},
		{"bytes not hex", String(FormatBytes), "0xzz", true},
		{"bytes no prefix", String(FormatBytes), "a9059cbb", true},
		{"empty bytes", String(FormatBytes), "0x", false},
		{"bool", Bool(), true, false},
		{"enum", Enum("trace", "debug", "info"), "debug", false},
		{"enum rejects", Enum("trace", "debug", "info"), "loud", true},
		{"semver", String(FormatSemver), "1.2.3", false},
		{"semver rejects", String(FormatSemver), "one", true},
		{"duration", String(FormatDuration), "3mo", false},
		{"duration rejects unit", String(FormatDuration), "3months", true},
		{"array of addresses", Array(Address()), []any{"0x44fA8E6f47987339850636F88629646662444217"}, false},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.schema, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObject(t *testing.T) {
	schema := Object(map[string]JSONSchema{
		"From":      Address(),
		"CacheSize": Uint(),
	}, "From")

	require.NoError(t, Validate(schema, map[string]any{
		"From":      "0x44fA8E6f47987339850636F88629646662444217",
		"CacheSize": 10,
	}))

	err := Validate(schema, map[string]any{"From": "nope"})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "/From", ve.Path)

	assert.Error(t, Validate(schema, map[string]any{"CacheSize": 1}), "From is required")
	assert.Error(t, Validate(schema, map[string]any{"From": "0x44fA8E6f47987339850636F88629646662444217", "Extra": 1}))
}

func TestValidatorCacheReuse(t *testing.T) {
	v := NewValidator(nil)
	s1, err := v.getValidator(Uint())
	require.NoError(t, err)
	s2, err := v.getValidator(Uint())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestSchemaLimits(t *testing.T) {
	v := NewValidator(&ValidationConfig{MaxSchemaSize: 1 << 16, MaxSchemaDepth: 2, AssertFormat: true})

	deep := Array(Array(Array(Uint())))
	err := v.Validate(deep, []any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema too deep")

	assert.NoError(t, v.Validate(Array(Uint()), []any{1, 2}))
}

func TestRemoteRefRefused(t *testing.T) {
	err := Validate(JSONSchema{"$ref": "https://example.com/schema.json"}, "x")
	require.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int64{
		"30":  30,
		"30s": 30,
		"2m":  120,
		"1h":  3600,
		"2d":  172800,
		"1w":  604800,
		"1mo": 2592000,
		"1y":  31536000,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "s", "1q", "1 months"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestToJSONValue(t *testing.T) {
	v, err := ToJSONValue([]any{big.NewInt(5), []byte{0xab}, common.Address{}})
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("5"), "0xab", "0x0000000000000000000000000000000000000000"}, v)

	_, err = ToJSONValue(struct{}{})
	assert.Error(t, err)
}
