// Package messaging publishes messages to a broker without tying callers to
// a specific one (Kafka, NATS, NSQ, Google Pub/Sub). The noop driver accepts
// and drops everything and is meant for local runs.
package messaging
