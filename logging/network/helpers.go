// Package network publishes session and wire protocol events.
package network

import (
	"context"

	"bridgesim/server/logging"
)

const (
	// EventAckAdvanced is emitted when a client acknowledges a newer frame.
	EventAckAdvanced logging.EventType = "network.ack_advanced"
	// EventAckRegression is emitted when a client acknowledges a counter at
	// or below one it already acknowledged.
	EventAckRegression logging.EventType = "network.ack_regression"
	// EventMalformedCommand is emitted before a connection is closed for an
	// undecodable frame.
	EventMalformedCommand logging.EventType = "network.malformed_command"
	// EventCommandRateLimited is emitted when inbound commands are dropped.
	EventCommandRateLimited logging.EventType = "network.command_rate_limited"
	// EventSessionEnded is emitted when both session loops have stopped.
	EventSessionEnded logging.EventType = "network.session_ended"
)

type AckPayload struct {
	Previous int64 `json:"previous"`
	Ack      int64 `json:"ack"`
	InFlight int   `json:"inFlight"`
}

type MalformedCommandPayload struct {
	Error string `json:"error"`
	Bytes int    `json:"bytes"`
}

type RateLimitedPayload struct {
	Command string `json:"command"`
	Dropped uint64 `json:"dropped"`
}

type SessionEndedPayload struct {
	FramesSent uint64 `json:"framesSent"`
	Error      string `json:"error,omitempty"`
}

func AckAdvanced(ctx context.Context, pub logging.Publisher, client logging.EntityRef, payload AckPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventAckAdvanced,
		Actor:    client,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func AckRegression(ctx context.Context, pub logging.Publisher, client logging.EntityRef, payload AckPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventAckRegression,
		Actor:    client,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func MalformedCommand(ctx context.Context, pub logging.Publisher, client logging.EntityRef, payload MalformedCommandPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventMalformedCommand,
		Actor:    client,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func CommandRateLimited(ctx context.Context, pub logging.Publisher, client logging.EntityRef, payload RateLimitedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventCommandRateLimited,
		Actor:    client,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func SessionEnded(ctx context.Context, pub logging.Publisher, client logging.EntityRef, payload SessionEndedPayload) {
	logging.Emit(ctx, pub, logging.Event{
		Type:     EventSessionEnded,
		Actor:    client,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
