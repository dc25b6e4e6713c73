package transform

import (
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

// Deployment states that end a deployment
const (
	DeploymentSucceeded = "SUCCESS"
	DeploymentFailed    = "FAILURE"
)

type codeDeployDetail struct {
	DeploymentState       string `json:"deploymentState"`
	DeploymentID          string `json:"deploymentId"`
	DeploymentApplication string `json:"deploymentApplication"`
}

// CodeDeploy keeps finished deployments only
func (t *Transformer) CodeDeploy(raw []byte, ordinal int) (models.Result, error) {
	log := t.logger.With(zap.Int("record", ordinal))
	log.Debug("start transforming codedeploy event")

	rec := models.NewRecord()
	detail, err := copyCommon(raw, rec)
	if err != nil {
		return models.Drop(), err
	}

	d := codeDeployDetail{DeploymentState: orEmpty(detail.Get("state"))}
	if d.DeploymentState != DeploymentSucceeded && d.DeploymentState != DeploymentFailed {
		log.Info("deployment not finished, dropping codedeploy event", zap.String("state", d.DeploymentState))
		return models.Drop(), nil
	}
	d.DeploymentID = orEmpty(detail.Get("deploymentId"))
	d.DeploymentApplication = orEmpty(detail.Get("application"))

	res, err := finish(rec, d)
	log.Debug("end transforming codedeploy event")
	return res, err
}
