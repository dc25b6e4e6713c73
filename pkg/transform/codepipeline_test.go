package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePipeline_ActionExecution(t *testing.T) {
	event := `{"detail-type":"CodePipeline Action Execution State Change","source":"aws.codepipeline","detail":{
		"pipeline":"p1","execution-id":"e-1","stage":"Build","action":"CodeBuild","state":"SUCCEEDED",
		"execution-result":{"external-execution-id":"build:1","external-execution-summary":"ok"},
		"type":{"category":"Build","owner":"AWS","provider":"CodeBuild","version":"1"}}}`

	res, err := newTransformer().CodePipeline([]byte(event), 3)
	require.NoError(t, err)

	out := decode(t, res)
	assert.Equal(t, "CodePipeline Action Execution State Change", out["detail_type"])
	assert.Equal(t, map[string]any{
		"pipelineName":        "p1",
		"executionId":         "e-1",
		"stage":               "Build",
		"action":              "CodeBuild",
		"state":               "SUCCEEDED",
		"externalExecutionId": "build:1",
		"actionCategory":      "Build",
		"actionOwner":         "AWS",
		"actionProvider":      "CodeBuild",
	}, detailOf(t, out))
}

func TestCodePipeline_PipelineExecutionDefaults(t *testing.T) {
	event := `{"source":"aws.codepipeline","detail":{"pipeline":"p1","execution-id":"e-1","state":"STARTED"}}`

	res, err := newTransformer().CodePipeline([]byte(event), 1)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"pipelineName": "p1",
		"executionId":  "e-1",
		"stage":        "",
		"action":       "",
		"state":        "STARTED",
	}, detailOf(t, decode(t, res)))
}

func TestCodePipeline_NeverDrops(t *testing.T) {
	res, err := newTransformer().CodePipeline([]byte(`{"source":"aws.codepipeline"}`), 1)
	require.NoError(t, err)
	assert.False(t, res.Dropped())
}
