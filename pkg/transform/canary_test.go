package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alarmEvent(name, prevTS, currTS, namespace string) []byte {
	state := func(value, ts string) string {
		if ts == "" {
			return `{"value":"` + value + `"}`
		}
		return `{"value":"` + value + `","timestamp":"` + ts + `"}`
	}
	return []byte(`{"version":"0","detail-type":"CloudWatch Alarm State Change","source":"aws.cloudwatch",
		"resources":["arn:aws:cloudwatch:us-east-1:111122223333:alarm:` + name + `"],
		"detail":{"alarmName":"` + name + `",
			"state":` + state("OK", currTS) + `,
			"previousState":` + state("ALARM", prevTS) + `,
			"configuration":{"metrics":[{"metricStat":{"metric":{"namespace":"` + namespace + `"}}}]}}}`)
}

func TestCanaryAlarm_RecoveryDuration(t *testing.T) {
	event := alarmEvent("SO0143-[AppX]-[RepoY]-MTTR", "2021-08-24T05:59:01.000+0000", "2021-08-24T06:05:01.000+0000", "CloudWatchSynthetics")

	res, err := newTransformer().CanaryAlarm(event, 1)
	require.NoError(t, err)

	out := decode(t, res)
	assert.Equal(t, "CloudWatch Alarm State Change", out["detail_type"])
	assert.Equal(t, map[string]any{
		"canaryAlarmCurrState":          "OK",
		"canaryAlarmCurrStateTimeStamp": "2021-08-24T06:05:01Z",
		"canaryAlarmPrevState":          "ALARM",
		"canaryAlarmPrevStateTimeStamp": "2021-08-24T05:59:01Z",
		"canaryAlarmName":               "SO0143-[AppX]-[RepoY]-MTTR",
		"canaryAlarmAppName":            "AppX",
		"canaryAlarmRepoName":           "RepoY",
		"alarmType":                     "Canary",
		"recoveryDurationMinutes":       float64(6),
	}, detailOf(t, out))
}

func TestCanaryAlarm_PipelineAlarmType(t *testing.T) {
	event := alarmEvent("SO0143-[AppX]-[RepoY]-MTTR", "2021-08-24T05:59:01Z", "2021-08-24T06:00:31Z", "AWS/CodePipeline")

	res, err := newTransformer().CanaryAlarm(event, 1)
	require.NoError(t, err)

	d := detailOf(t, decode(t, res))
	assert.Equal(t, "CodePipeline", d["alarmType"])
	// 1.5 minutes rounds half up
	assert.Equal(t, float64(2), d["recoveryDurationMinutes"])
}

func TestCanaryAlarm_MissingTimestamp(t *testing.T) {
	event := alarmEvent("SO0143-[AppX]-[RepoY]-MTTR", "", "2021-08-24T06:05:01Z", "CloudWatchSynthetics")

	res, err := newTransformer().CanaryAlarm(event, 1)
	require.NoError(t, err)

	d := detailOf(t, decode(t, res))
	assert.Equal(t, "", d["canaryAlarmPrevStateTimeStamp"])
	assert.Equal(t, float64(-1), d["recoveryDurationMinutes"])
}

func TestCanaryAlarm_NullTimestamp(t *testing.T) {
	event := strings.Replace(
		string(alarmEvent("SO0143-[AppX]-[RepoY]-MTTR", "", "2021-08-24T06:05:01Z", "CloudWatchSynthetics")),
		`{"value":"ALARM"}`, `{"value":"ALARM","timestamp":null}`, 1)

	res, err := newTransformer().CanaryAlarm([]byte(event), 1)
	require.NoError(t, err)

	d := detailOf(t, decode(t, res))
	assert.Equal(t, "ALARM", d["canaryAlarmPrevState"])
	assert.Equal(t, "", d["canaryAlarmPrevStateTimeStamp"])
	assert.Equal(t, float64(-1), d["recoveryDurationMinutes"])
}

func TestCanaryAlarm_DropsOtherAlarms(t *testing.T) {
	event := alarmEvent("HighCPU", "2021-08-24T05:59:01Z", "2021-08-24T06:05:01Z", "AWS/EC2")

	res, err := newTransformer().CanaryAlarm(event, 1)
	require.NoError(t, err)
	assert.True(t, res.Dropped())
}

func TestCanaryAlarm_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event string
	}{
		{"no detail", `{"resources":["x-MTTR"]}`},
		{"no state", `{"resources":["x-MTTR"],"detail":{"alarmName":"x-MTTR","previousState":{"value":"OK"}}}`},
		{"no alarm name", `{"resources":["x-MTTR"],"detail":{"state":{"value":"OK"},"previousState":{"value":"ALARM"}}}`},
		{"bad timestamp", `{"resources":["x-MTTR"],"detail":{"alarmName":"x-MTTR","state":{"value":"OK","timestamp":"soon"},"previousState":{"value":"ALARM"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTransformer().CanaryAlarm([]byte(tt.event), 1)
			assert.Error(t, err)
		})
	}
}

func TestBracketed(t *testing.T) {
	tests := []struct {
		name      string
		alarm     string
		app, repo string
	}{
		{"two pairs", "SO0143-[AppX]-[RepoY]-MTTR", "AppX", "RepoY"},
		{"one pair", "SO0143-[AppX]-MTTR", "AppX", "AppX"},
		{"three pairs", "[a]-[b]-[c]", "a", "c"},
		{"none", "SO0143-MTTR", "", ""},
		{"reversed", "x]-[y", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.app, bracketed(tt.alarm, strings.IndexByte, strings.IndexByte))
			assert.Equal(t, tt.repo, bracketed(tt.alarm, strings.LastIndexByte, strings.LastIndexByte))
		})
	}
}

func TestJoinResources(t *testing.T) {
	assert.Equal(t, "a,b", joinResources(parse(`{"r":["a","b"]}`, "r")))
	assert.Equal(t, "", joinResources(parse(`{}`, "r")))
}
