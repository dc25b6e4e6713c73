package transform

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

const (
	mttrSuffix          = "-MTTR"
	syntheticsNamespace = "CloudWatchSynthetics"
	athenaTimestamp     = "2006-01-02T15:04:05Z"

	AlarmTypeCanary       = "Canary"
	AlarmTypeCodePipeline = "CodePipeline"
)

type canaryAlarmDetail struct {
	CurrState               string `json:"canaryAlarmCurrState"`
	CurrStateTimestamp      string `json:"canaryAlarmCurrStateTimeStamp"`
	PrevState               string `json:"canaryAlarmPrevState"`
	PrevStateTimestamp      string `json:"canaryAlarmPrevStateTimeStamp"`
	AlarmName               string `json:"canaryAlarmName"`
	AppName                 string `json:"canaryAlarmAppName"`
	RepoName                string `json:"canaryAlarmRepoName"`
	AlarmType               string `json:"alarmType"`
	RecoveryDurationMinutes int64  `json:"recoveryDurationMinutes"`
}

// CanaryAlarm normalizes alarm state changes of the MTTR alarms, named
// SolutionId-[AppName]-[RepoName]-MTTR. Other alarms are dropped.
func (t *Transformer) CanaryAlarm(raw []byte, ordinal int) (models.Result, error) {
	log := t.logger.With(zap.Int("record", ordinal))

	resources := joinResources(gjson.GetBytes(raw, "resources"))
	if !t.isMTTRAlarm(resources) {
		log.Info("not an MTTR alarm, dropping cloudwatch event", zap.String("solutionId", t.solutionID))
		return models.Drop(), nil
	}
	log.Debug("start transforming synthetic canary alarm event")

	rec := models.NewRecord()
	detail, err := copyCommon(raw, rec)
	if err != nil {
		return models.Drop(), err
	}
	if !detail.IsObject() {
		return models.Drop(), errors.New("alarm event has no detail")
	}

	var d canaryAlarmDetail
	if d.CurrState, d.CurrStateTimestamp, err = alarmState(detail.Get("state")); err != nil {
		return models.Drop(), err
	}
	if d.PrevState, d.PrevStateTimestamp, err = alarmState(detail.Get("previousState")); err != nil {
		return models.Drop(), err
	}

	name := detail.Get("alarmName")
	if !present(name) {
		return models.Drop(), errors.New("alarm event has no alarmName")
	}
	d.AlarmName = name.String()
	d.AppName = bracketed(d.AlarmName, strings.IndexByte, strings.IndexByte)
	d.RepoName = bracketed(d.AlarmName, strings.LastIndexByte, strings.LastIndexByte)

	d.AlarmType = AlarmTypeCodePipeline
	if detail.Get("configuration.metrics.0.metricStat.metric.namespace").String() == syntheticsNamespace {
		d.AlarmType = AlarmTypeCanary
	}

	if d.RecoveryDurationMinutes, err = recoveryMinutes(d.PrevStateTimestamp, d.CurrStateTimestamp); err != nil {
		return models.Drop(), err
	}

	res, err := finish(rec, d)
	log.Debug("end transforming synthetic canary alarm event")
	return res, err
}

// isMTTRAlarm matches alarm resources carrying the MTTR suffix. Alarms created
// by the solution are named "<solutionID>-[...]-[...]-MTTR" and always match.
func (t *Transformer) isMTTRAlarm(resources string) bool {
	return strings.Contains(resources, mttrSuffix)
}

// joinResources renders the resources array comma separated
func joinResources(v gjson.Result) string {
	if !v.IsArray() {
		return v.String()
	}
	var parts []string
	for _, r := range v.Array() {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ",")
}

// alarmState returns the state value and its timestamp reformatted for
// Athena, or "" when there is no timestamp.
func alarmState(state gjson.Result) (string, string, error) {
	if !state.IsObject() {
		return "", "", errors.New("alarm event has no state")
	}
	value := state.Get("value").String()
	ts := state.Get("timestamp")
	if !present(ts) {
		return value, "", nil
	}
	parsed, err := parseTimestamp(ts.String())
	if err != nil {
		return "", "", err
	}
	return value, parsed.UTC().Format(athenaTimestamp), nil
}

// bracketed returns the text between the '[' and ']' located by the given
// index functions, or "" when they do not form a pair.
func bracketed(name string, open, closing func(string, byte) int) string {
	start := open(name, '[')
	end := closing(name, ']')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return name[start+1 : end]
}

// recoveryMinutes is the rounded number of minutes between two Athena
// timestamps, -1 when either is empty.
func recoveryMinutes(prev, curr string) (int64, error) {
	if prev == "" || curr == "" {
		return -1, nil
	}
	start, err := time.Parse(athenaTimestamp, prev)
	if err != nil {
		return 0, err
	}
	end, err := time.Parse(athenaTimestamp, curr)
	if err != nil {
		return 0, err
	}
	minutes := float64(end.Sub(start).Milliseconds()) / 60000
	return int64(math.Floor(minutes + 0.5)), nil
}
