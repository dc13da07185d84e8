package dyndb_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	c := dyndb.Cursor{
		"pk":                &types.AttributeValueMemberS{Value: "Admin"},
		"sk":                &types.AttributeValueMemberS{Value: "STARK|role"},
		"STARK-ListView-sk": &types.AttributeValueMemberS{Value: "Admin"},
		"Level":             &types.AttributeValueMemberN{Value: "3"},
	}

	token, err := c.Encode()
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	decoded, err := dyndb.DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestCursor_Empty(t *testing.T) {
	t.Parallel()

	token, err := dyndb.Cursor(nil).Encode()
	require.NoError(t, err)
	assert.Empty(t, token)

	c, err := dyndb.DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not base64":    "%%%",
		"not json":      base64.RawURLEncoding.EncodeToString([]byte("nope")),
		"empty object":  base64.RawURLEncoding.EncodeToString([]byte("{}")),
		"untyped value": base64.RawURLEncoding.EncodeToString([]byte(`{"pk":{}}`)),
	}
	for name, token := range tests {
		token := token
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := dyndb.DecodeCursor(token)
			assert.True(t, errors.Is(err, dyndb.ErrInvalidCursor), "got %v", err)
		})
	}
}

func TestCursor_UnsupportedKeyType(t *testing.T) {
	_, err := dyndb.Cursor{"pk": &types.AttributeValueMemberBOOL{Value: true}}.Encode()
	assert.ErrorIs(t, err, dyndb.ErrInvalidCursor)
}
