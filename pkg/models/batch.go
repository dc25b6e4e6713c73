package models

import (
	"encoding/base64"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// Batch is the Firehose data-transformation request. Data stays base64 encoded
// so a record that fails to decode can still be handed back untouched.
type Batch struct {
	InvocationID      string        `json:"invocationId,omitempty"`
	DeliveryStreamArn string        `json:"deliveryStreamArn,omitempty"`
	Region            string        `json:"region,omitempty"`
	Records           []BatchRecord `json:"records"`
}

// BatchRecord is a single inbound record
type BatchRecord struct {
	RecordID string `json:"recordId"`
	Data     string `json:"data"`
}

// Decode returns the raw bytes of the record payload
func (r BatchRecord) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Data)
}

// Response is returned to Firehose, one envelope per input record, in input order
type Response struct {
	Records []Envelope `json:"records"`
}

// Envelope is the per-record output wrapper
type Envelope struct {
	RecordID string `json:"recordId"`
	Result   string `json:"result"`
	Data     string `json:"data"`
}

// OkEnvelope wraps a transformed payload
func OkEnvelope(recordID string, payload []byte) Envelope {
	return Envelope{
		RecordID: recordID,
		Result:   events.KinesisFirehoseTransformedStateOk,
		Data:     base64.StdEncoding.EncodeToString(payload),
	}
}

// DroppedEnvelope acknowledges a record without forwarding it. The original
// data is passed through as received.
func DroppedEnvelope(record BatchRecord) Envelope {
	return Envelope{
		RecordID: record.RecordID,
		Result:   events.KinesisFirehoseTransformedStateDropped,
		Data:     record.Data,
	}
}

// IsOk reports whether the envelope carries a transformed payload
func (e Envelope) IsOk() bool {
	return e.Result == events.KinesisFirehoseTransformedStateOk
}

// FailedRecord describes a record whose processing errored. It is what the
// failure archive stores.
type FailedRecord struct {
	Time     time.Time `json:"time"`
	Parser   string    `json:"parser"`
	Ordinal  int       `json:"ordinal"`
	RecordID string    `json:"recordId"`
	Error    string    `json:"error"`
	Data     string    `json:"data"`
}
