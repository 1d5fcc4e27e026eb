package json

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name string `json:"name"`
}

func TestUnmarshalExtended(t *testing.T) {
	config, err := UnmarshalExtended[testConfig]([]byte(`{"name":"stream"}`))
	require.NoError(t, err)
	require.Equal(t, "stream", config.Name)
}

func TestUnmarshalExtendedUnknownField(t *testing.T) {
	_, err := UnmarshalExtended[testConfig]([]byte(`{"name":"stream","extra":1}`))
	require.Error(t, err)
}

func TestUnmarshalExtendedSyntaxPosition(t *testing.T) {
	_, err := UnmarshalExtended[testConfig]([]byte("{\n  \"name\": ,\n}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "row 2")
	var syntaxError *SyntaxError
	require.ErrorAs(t, err, &syntaxError)
}
