package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JonMunkholm/stageloader/internal/core"
)

var (
	errBadEvent     = errors.New("malformed event")
	errIgnoredEvent = errors.New("ignored event type")
)

// Only finalized objects are loaded. Deletes, archives and metadata
// updates arrive on the same notification channel.
const (
	finalizeEventType    = "OBJECT_FINALIZE"
	finalizeCloudEvent   = "google.cloud.storage.object.v1.finalized"
	cloudEventTypeHeader = "Ce-Type"
)

// checkCloudEventType rejects CloudEvents deliveries for anything but a
// finalized object. Requests without the header pass.
func checkCloudEventType(ceType string) error {
	if ceType != "" && ceType != finalizeCloudEvent {
		return fmt.Errorf("%w: %s", errIgnoredEvent, ceType)
	}
	return nil
}

// eventEnvelope accepts both trigger shapes:
//
//	{"bucket": "b", "name": "raw/payments.csv", ...}        storage object payload
//	{"message": {"attributes": {...}, "data": "..."}, ...}  Pub/Sub push
type eventEnvelope struct {
	Bucket  string         `json:"bucket"`
	Name    string         `json:"name"`
	Message *pubsubMessage `json:"message"`
}

type pubsubMessage struct {
	Attributes map[string]string `json:"attributes"`
	Data       string            `json:"data"`
	MessageID  string            `json:"messageId"`
}

// decodeEvent extracts bucket and object name from a trigger body.
// Missing fields are not an error here; the pipeline treats them as a skip.
// Notifications for anything but OBJECT_FINALIZE return errIgnoredEvent.
func decodeEvent(body []byte) (core.Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return core.Event{}, fmt.Errorf("%w: %w", errBadEvent, err)
	}

	if env.Message == nil {
		return core.Event{Bucket: env.Bucket, Name: env.Name}, nil
	}

	// Storage notifications carry the object in attributes.
	attrs := env.Message.Attributes
	if t := attrs["eventType"]; t != "" && t != finalizeEventType {
		return core.Event{}, fmt.Errorf("%w: %s", errIgnoredEvent, t)
	}
	if attrs["bucketId"] != "" || attrs["objectId"] != "" {
		return core.Event{Bucket: attrs["bucketId"], Name: attrs["objectId"]}, nil
	}

	if env.Message.Data == "" {
		return core.Event{}, nil
	}

	data, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return core.Event{}, fmt.Errorf("%w: message data: %w", errBadEvent, err)
	}

	var ev core.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.Event{}, fmt.Errorf("%w: message data: %w", errBadEvent, err)
	}
	return ev, nil
}
