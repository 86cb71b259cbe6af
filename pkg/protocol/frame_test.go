package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("FullFrame", func(t *testing.T) {
		f, err := Decode([]byte(`{"type":"session.create","id":"1","payload":{"name":"T","cols":80,"rows":24}}`))
		require.NoError(t, err)
		assert.Equal(t, TypeSessionCreate, f.Type)
		assert.Equal(t, "1", f.ID)

		var p SessionCreatePayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Equal(t, "T", p.Name)
		assert.Equal(t, 80, p.Cols)
		assert.Equal(t, 24, p.Rows)
	})

	t.Run("NoPayload", func(t *testing.T) {
		f, err := Decode([]byte(`{"type":"ping"}`))
		require.NoError(t, err)
		assert.Equal(t, TypePing, f.Type)
		assert.Empty(t, f.ID)

		var p SessionAttachPayload
		require.NoError(t, f.DecodePayload(&p))
		assert.Empty(t, p.SessionID)
	})

	t.Run("MissingType", func(t *testing.T) {
		_, err := Decode([]byte(`{"id":"1","payload":{}}`))
		assert.ErrorIs(t, err, ErrMissingType)
	})

	t.Run("EmptyType", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":""}`))
		assert.ErrorIs(t, err, ErrMissingType)
	})

	t.Run("NonStringType", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":42}`))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("NotJSON", func(t *testing.T) {
		_, err := Decode([]byte("not a frame"))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("JSONArray", func(t *testing.T) {
		_, err := Decode([]byte(`["type","ping"]`))
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})
}

func TestEncodeEchoesCorrelationID(t *testing.T) {
	f, err := NewFrame(TypeSessionCreated, "req-7", SessionInfo{ID: "abc"})
	require.NoError(t, err)

	data, err := Encode(f)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.JSONEq(t, `"req-7"`, string(decoded["id"]))
	assert.JSONEq(t, `"session.created"`, string(decoded["type"]))
}

func TestEncodeOmitsEmptyFields(t *testing.T) {
	f, err := NewFrame(TypePong, "", nil)
	require.NoError(t, err)

	data, err := Encode(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestDecodePayloadError(t *testing.T) {
	f, err := Decode([]byte(`{"type":"terminal.resize","payload":{"cols":"wide"}}`))
	require.NoError(t, err)

	var p TerminalResizePayload
	err = f.DecodePayload(&p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal.resize")
}

func TestMovePayloadNullCategory(t *testing.T) {
	f, err := Decode([]byte(`{"type":"session.move","id":"3","payload":{"sessionId":"s1","categoryId":null}}`))
	require.NoError(t, err)

	var p SessionMovePayload
	require.NoError(t, f.DecodePayload(&p))
	assert.Equal(t, "s1", p.SessionID)
	assert.Nil(t, p.CategoryID)
}

func TestValidNotificationKind(t *testing.T) {
	assert.True(t, ValidNotificationKind(KindNeedsInput))
	assert.True(t, ValidNotificationKind(KindCompleted))
	assert.False(t, ValidNotificationKind("finished"))
	assert.False(t, ValidNotificationKind(""))
}
