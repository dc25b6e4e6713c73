// Package transform maps raw CI/CD events onto flat records for the
// analytics tables. Every transform returns either a kept payload or a drop;
// an error means the event did not have the shape the transform expects.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

// Event sources routed by the multiplexed parser
const (
	SourceCodeCommit   = "aws.codecommit"
	SourceCloudWatch   = "aws.cloudwatch"
	SourceCodeDeploy   = "aws.codedeploy"
	SourceCodePipeline = "aws.codepipeline"
)

// Func transforms one decoded record. ordinal is the 1-based record number
// within the batch and is only used for logging.
type Func func(raw []byte, ordinal int) (models.Result, error)

var errNotObject = errors.New("event is not a JSON object")

// Transformer holds what the transforms need beyond the event itself
type Transformer struct {
	solutionID string
	logger     *zap.Logger
}

// New creates a Transformer. solutionID is matched against alarm resources.
func New(solutionID string, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{solutionID: solutionID, logger: logger}
}

// ForSource returns the transform for an EventBridge source, or nil
func (t *Transformer) ForSource(source string) Func {
	switch source {
	case SourceCodeCommit:
		return t.CodeCommit
	case SourceCloudWatch:
		return t.CanaryAlarm
	case SourceCodeDeploy:
		return t.CodeDeploy
	case SourceCodePipeline:
		return t.CodePipeline
	default:
		return nil
	}
}

// copyCommon copies every top-level key except detail into rec, renaming
// detail-type to detail_type since Athena rejects hyphens in column names.
// It returns the detail object, which may not exist. A repeated key takes its
// last value.
func copyCommon(raw []byte, rec *models.Record) (gjson.Result, error) {
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return gjson.Result{}, errNotObject
	}
	var detail gjson.Result
	root.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		switch k {
		case "detail":
			detail = value
			return true
		case "detail-type":
			k = "detail_type"
		}
		rec.SetRaw(k, json.RawMessage(value.Raw))
		return true
	})
	return detail, nil
}

// finish appends detail and serializes the record
func finish(rec *models.Record, detail any) (models.Result, error) {
	if err := rec.Set("detail", detail); err != nil {
		return models.Drop(), err
	}
	b, err := rec.MarshalJSON()
	if err != nil {
		return models.Drop(), fmt.Errorf("marshal record: %w", err)
	}
	return models.Keep(b), nil
}

// present reports whether v exists and is not JSON null
func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// optional returns a pointer to the string value of v, nil when absent
func optional(v gjson.Result) *string {
	if !present(v) {
		return nil
	}
	s := v.String()
	return &s
}

func orEmpty(v gjson.Result) string {
	if !present(v) {
		return ""
	}
	return v.String()
}

// lastSegment returns the part of s after the final slash
func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts the ISO-8601 variants seen in CloudWatch alarm and
// GitHub payloads, e.g. 2021-08-24T06:05:01.123+0000 or 2022-01-01T12:34:56Z.
// Values without an offset are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
