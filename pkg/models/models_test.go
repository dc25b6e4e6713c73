package models

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_KeepsInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.SetRaw("version", []byte(`"0"`))
	r.SetRaw("detail_type", []byte(`"CodeCommit Repository State Change"`))
	require.NoError(t, r.Set("detail", map[string]string{"commitId": "c1"}))

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"version":"0","detail_type":"CodeCommit Repository State Change","detail":{"commitId":"c1"}}`, string(b))
	assert.Equal(t, []string{"version", "detail_type", "detail"}, r.Keys())
}

func TestRecord_LastWriteWinsInPlace(t *testing.T) {
	r := NewRecord()
	assert.True(t, r.SetRaw("id", []byte(`"a"`)))
	assert.True(t, r.SetRaw("source", []byte(`"s"`)))
	assert.False(t, r.SetRaw("id", []byte(`"b"`)))
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("id"))

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"b","source":"s"}`, string(b))
}

func TestRecord_CompactsRawValues(t *testing.T) {
	r := NewRecord()
	r.SetRaw("resources", []byte("[\n  \"arn:a\",\n  \"arn:b\"\n]"))

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"resources":["arn:a","arn:b"]}`, string(b))
}

func TestResult(t *testing.T) {
	assert.True(t, Drop().Dropped())
	assert.Nil(t, Drop().Payload())

	kept := Keep([]byte(`{}`))
	assert.False(t, kept.Dropped())
	assert.Equal(t, `{}`, string(kept.Payload()))
}

func TestEnvelopes(t *testing.T) {
	record := BatchRecord{RecordID: "r1", Data: base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))}

	decoded, err := record.Decode()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(decoded))

	ok := OkEnvelope("r1", []byte("payload"))
	assert.True(t, ok.IsOk())
	assert.Equal(t, "Ok", ok.Result)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("payload")), ok.Data)

	dropped := DroppedEnvelope(record)
	assert.False(t, dropped.IsOk())
	assert.Equal(t, "Dropped", dropped.Result)
	assert.Equal(t, record.Data, dropped.Data)
	assert.Equal(t, "r1", dropped.RecordID)
}
