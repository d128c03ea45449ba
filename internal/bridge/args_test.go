package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnowflakeDecodesStringOrNumber(t *testing.T) {
	var s Snowflake
	require.NoError(t, json.Unmarshal([]byte(`"1349146942634065960"`), &s))
	require.Equal(t, Snowflake(1349146942634065960), s)

	require.NoError(t, json.Unmarshal([]byte(`42`), &s))
	require.Equal(t, Snowflake(42), s)

	require.Error(t, json.Unmarshal([]byte(`"12x"`), &s))
	require.Error(t, json.Unmarshal([]byte(`1.5`), &s))
	require.Error(t, json.Unmarshal([]byte(`true`), &s))
}

func TestSnowflakeEncodesAsString(t *testing.T) {
	encoded, err := json.Marshal(struct {
		ID Snowflake `json:"id"`
	}{ID: 18446744073709551615})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"18446744073709551615"}`, string(encoded))
}

func TestDecodeArgs(t *testing.T) {
	args, err := decodeArgs[lobbyArgs](nil)
	require.NoError(t, err)
	require.Nil(t, args.LobbyID)

	args, err = decodeArgs[lobbyArgs](json.RawMessage(`{"lobby_id":"9","extra":1}`))
	require.NoError(t, err)
	require.Equal(t, Snowflake(9), *args.LobbyID)

	_, err = decodeArgs[lobbyArgs](json.RawMessage(`"nope"`))
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestMessageLimit(t *testing.T) {
	limit, err := messageLimit(nil)
	require.NoError(t, err)
	require.Equal(t, defaultMessageLimit, limit)

	big := 1000
	limit, err = messageLimit(&big)
	require.NoError(t, err)
	require.Equal(t, maxMessageLimit, limit)

	zero := 0
	_, err = messageLimit(&zero)
	require.EqualError(t, err, "limit must be positive")
}

func TestRequireID(t *testing.T) {
	_, err := requireID("lobby_id", nil)
	require.EqualError(t, err, "lobby_id is required")

	zero := Snowflake(0)
	_, err = requireID("lobby_id", &zero)
	require.EqualError(t, err, "lobby_id must be non-zero")

	id := Snowflake(3)
	got, err := requireID("lobby_id", &id)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got)
}
