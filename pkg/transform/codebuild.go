package transform

import (
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

// CodeBuild filters a CloudWatch metric stream record, which holds one JSON
// metric per line. Only metrics with a ProjectName dimension are kept, the
// account-level duplicates are discarded. Lines pass through unchanged.
func (t *Transformer) CodeBuild(raw []byte, ordinal int) (models.Result, error) {
	lines := strings.Split(string(raw), "\n")
	var kept []string
	for _, line := range lines {
		if !gjson.Valid(line) {
			continue
		}
		if present(gjson.Get(line, "dimensions.ProjectName")) {
			kept = append(kept, line)
		}
	}

	t.logger.Debug("metrics after filtering empty dimensions",
		zap.Int("record", ordinal), zap.Int("in", len(lines)), zap.Int("kept", len(kept)))

	if len(kept) == 0 {
		return models.Drop(), nil
	}
	return models.Keep([]byte(strings.Join(kept, "\n"))), nil
}
