package span

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestFromKafkaMessage_ExtractsServiceNameFromHeaders(t *testing.T) {
	msg := &kafka.Message{
		Partition: 3,
		Offset:    42,
		Value:     []byte("payload"),
		Headers: []kafka.Header{
			{Key: ServiceNameHeader, Value: []byte("checkout")},
		},
	}

	rec, ok := FromKafkaMessage(msg)
	assert.True(t, ok)
	assert.Equal(t, "checkout", rec.ServiceName)
	assert.Equal(t, "3", rec.PartitionID)
	assert.Equal(t, int64(42), rec.Offset)
	assert.Equal(t, int64(len("payload")), rec.Size)
}

func TestFromKafkaMessage_MissingServiceNameHeader(t *testing.T) {
	msg := &kafka.Message{Value: []byte("x")}

	rec, ok := FromKafkaMessage(msg)
	assert.True(t, ok)
	assert.Empty(t, rec.ServiceName)
}

func TestFromKafkaMessage_NilMessage(t *testing.T) {
	_, ok := FromKafkaMessage(nil)
	assert.False(t, ok)
}
