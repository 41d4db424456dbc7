package kafka

import (
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONMessage(t *testing.T) {
	msg, err := NewJSONMessage("run-1", "moment.step", map[string]string{"step": "FINISHED"})
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "FINISHED", body["step"])
	assert.Contains(t, msg.Headers, kafkago.Header{Key: "event_type", Value: []byte("moment.step")})
	assert.False(t, msg.Time.IsZero())
}

func TestNewJSONMessage_Unencodable(t *testing.T) {
	_, err := NewJSONMessage("k", "moment.step", make(chan int))
	assert.ErrorContains(t, err, "moment.step")
}

func TestCompressionFromString(t *testing.T) {
	assert.Equal(t, kafkago.Gzip, CompressionFromString("GZIP"))
	assert.Equal(t, kafkago.Lz4, CompressionFromString("lz4"))
	assert.Equal(t, kafkago.Zstd, CompressionFromString("zstd"))
	assert.Equal(t, kafkago.Snappy, CompressionFromString("unknown"))
}
