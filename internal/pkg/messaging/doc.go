// Package messaging publishes verification audit events to a broker.
//
// Use cases depend on Publisher only, so the broker (Kafka, NATS, NSQ or
// Google Pub/Sub) is a deployment choice. Noop discards everything and is
// used when auditing is switched off.
package messaging
