package transform

import (
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

type codePipelineDetail struct {
	PipelineName        string  `json:"pipelineName"`
	ExecutionID         string  `json:"executionId"`
	Stage               string  `json:"stage"`
	Action              string  `json:"action"`
	State               string  `json:"state"`
	ExternalExecutionID *string `json:"externalExecutionId,omitempty"`
	ActionCategory      *string `json:"actionCategory,omitempty"`
	ActionOwner         *string `json:"actionOwner,omitempty"`
	ActionProvider      *string `json:"actionProvider,omitempty"`
}

// CodePipeline normalizes pipeline, stage and action execution state changes.
// It never drops.
func (t *Transformer) CodePipeline(raw []byte, ordinal int) (models.Result, error) {
	log := t.logger.With(zap.Int("record", ordinal))
	log.Debug("start transforming codepipeline event")

	rec := models.NewRecord()
	detail, err := copyCommon(raw, rec)
	if err != nil {
		return models.Drop(), err
	}

	d := codePipelineDetail{
		PipelineName: orEmpty(detail.Get("pipeline")),
		ExecutionID:  orEmpty(detail.Get("execution-id")),
		Stage:        orEmpty(detail.Get("stage")),
		Action:       orEmpty(detail.Get("action")),
		State:        orEmpty(detail.Get("state")),
	}
	if result := detail.Get("execution-result"); present(result) {
		d.ExternalExecutionID = optional(result.Get("external-execution-id"))
	}
	if actionType := detail.Get("type"); present(actionType) {
		d.ActionCategory = optional(actionType.Get("category"))
		d.ActionOwner = optional(actionType.Get("owner"))
		d.ActionProvider = optional(actionType.Get("provider"))
	}

	res, err := finish(rec, d)
	log.Debug("end transforming codepipeline event")
	return res, err
}
