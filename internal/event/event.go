package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrMalformedEvent means the payload has neither supported shape, or is
// missing fields the shape requires. Nothing in it should be processed.
var ErrMalformedEvent = errors.New("malformed event")

// Target is one object the cleanup should look at.
type Target struct {
	Bucket    string
	Key       string
	EventName string
}

// envelope only detects which of the two shapes was delivered.
type envelope struct {
	Records json.RawMessage `json:"Records"`
	Detail  json.RawMessage `json:"detail"`
}

// Only the fields the cleanup reads are decoded. Anything else in a record
// or event (times, sizes, identity) may have any type.

type recordKey struct {
	S3 struct {
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

type recordBucket struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
	} `json:"s3"`
}

type recordEventName struct {
	EventName string `json:"eventName"`
}

// objectDetail is the detail of an EventBridge "Object Created" or
// "Object Deleted" (lifecycle expiration) event.
type objectDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

type detailType struct {
	DetailType string `json:"detail-type"`
}

// Decode normalises an S3 notification batch or a single EventBridge event
// into targets. A record whose key is missing or unreadable produces a
// Target with an empty Key; it never fails its siblings.
func Decode(raw []byte) ([]Target, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch {
	case !isNull(env.Records):
		return decodeRecords(env.Records)
	case !isNull(env.Detail):
		return decodeDetail(raw, env.Detail)
	default:
		return nil, fmt.Errorf("%w: missing Records or detail", ErrMalformedEvent)
	}
}

func decodeRecords(raw json.RawMessage) ([]Target, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: Records: %v", ErrMalformedEvent, err)
	}

	targets := make([]Target, 0, len(records))
	for _, record := range records {
		var target Target

		var key recordKey
		if err := json.Unmarshal(record, &key); err == nil {
			target.Key = unescapeKey(key.S3.Object.Key)
		}
		var bucket recordBucket
		if err := json.Unmarshal(record, &bucket); err == nil {
			target.Bucket = bucket.S3.Bucket.Name
		}
		var name recordEventName
		if err := json.Unmarshal(record, &name); err == nil {
			target.EventName = name.EventName
		}

		targets = append(targets, target)
	}
	return targets, nil
}

func decodeDetail(raw []byte, rawDetail json.RawMessage) ([]Target, error) {
	var detail objectDetail
	if err := json.Unmarshal(rawDetail, &detail); err != nil {
		return nil, fmt.Errorf("%w: detail: %v", ErrMalformedEvent, err)
	}
	if detail.Bucket.Name == "" {
		return nil, fmt.Errorf("%w: missing detail.bucket.name", ErrMalformedEvent)
	}
	if detail.Object.Key == "" {
		return nil, fmt.Errorf("%w: missing detail.object.key", ErrMalformedEvent)
	}

	target := Target{Bucket: detail.Bucket.Name, Key: detail.Object.Key}
	var dt detailType
	if err := json.Unmarshal(raw, &dt); err == nil {
		target.EventName = dt.DetailType
	}
	return []Target{target}, nil
}

// S3 notification keys are form-encoded; EventBridge keys are not.
func unescapeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
