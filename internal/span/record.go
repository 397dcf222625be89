// Package span wraps inbound Kafka records into the (key, span) pair the
// rate limiter and ChunkManager consume, keeping Kafka-specific framing out
// of the domain logic above this package.
package span

import (
	"strconv"

	"github.com/segmentio/kafka-go"
)

// ServiceNameHeader is the Kafka header key spans carry their owning
// service's name under.
const ServiceNameHeader = "service_name"

// Record is one inbound span: the decoded message plus the framing
// (partition, offset, byte size) the ChunkManager's write path needs.
type Record struct {
	ServiceName string
	Bytes       []byte
	Size        int64
	PartitionID string
	Offset      int64
}

// FromKafkaMessage builds a Record from a raw Kafka message, extracting the
// service name from headers and the partition ID from the message's
// partition number. Returns ok=false if msg is nil, mirroring the
// "span absent" drop case in the rate limiter's decision procedure.
func FromKafkaMessage(msg *kafka.Message) (Record, bool) {
	if msg == nil {
		return Record{}, false
	}

	var serviceName string
	for _, h := range msg.Headers {
		if h.Key == ServiceNameHeader {
			serviceName = string(h.Value)
			break
		}
	}

	return Record{
		ServiceName: serviceName,
		Bytes:       msg.Value,
		Size:        int64(len(msg.Value)),
		PartitionID: strconv.Itoa(msg.Partition),
		Offset:      msg.Offset,
	}, true
}
