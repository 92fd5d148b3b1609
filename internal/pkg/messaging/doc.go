// Package messaging provides a broker-agnostic API for publishing and
// consuming messages.
//
// Drivers exist for NATS, NSQ, Kafka, Google Pub/Sub and an in-process
// memory broker. Consumers name their work-sharing group with WithGroup; each
// driver maps it to its own concept (queue group, channel, consumer group,
// subscription). NSQ has no message headers, so headers are dropped there.
package messaging
