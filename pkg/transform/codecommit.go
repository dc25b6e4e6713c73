package transform

import (
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

type codeCommitDetail struct {
	EventName      *string `json:"eventName,omitempty"`
	AuthorName     *string `json:"authorName,omitempty"`
	RepositoryName *string `json:"repositoryName,omitempty"`
	BranchName     *string `json:"branchName,omitempty"`
	CommitID       *string `json:"commitId,omitempty"`
}

// CodeCommit normalizes a CodeCommit API call event (GitPush, PutFile,
// CreateCommit, ...). Events without requestParameters or without a
// resolvable commit id are dropped.
func (t *Transformer) CodeCommit(raw []byte, ordinal int) (models.Result, error) {
	log := t.logger.With(zap.Int("record", ordinal))
	log.Debug("start transforming codecommit event")

	rec := models.NewRecord()
	detail, err := copyCommon(raw, rec)
	if err != nil {
		return models.Drop(), err
	}

	var d codeCommitDetail
	d.EventName = optional(detail.Get("eventName"))
	d.AuthorName = authorName(detail.Get("userIdentity"))

	params := detail.Get("requestParameters")
	if !present(params) {
		log.Info("no requestParameters, dropping codecommit event")
		return models.Drop(), nil
	}
	setIfPresent(&d.RepositoryName, params.Get("repositoryName"))
	setIfPresent(&d.BranchName, params.Get("branchName"))
	setIfPresent(&d.AuthorName, params.Get("name"))
	setIfPresent(&d.CommitID, params.Get("commitId"))

	// console commits report the new commit in the response
	if d.CommitID == nil {
		d.CommitID = optional(detail.Get("responseElements.commitId"))
	}

	// git pushes carry the pushed refs
	if ref := params.Get("references.0"); ref.IsObject() {
		if d.CommitID == nil {
			d.CommitID = optional(ref.Get("commit"))
		}
		if d.BranchName == nil {
			if r := ref.Get("ref"); present(r) {
				branch := lastSegment(r.String())
				d.BranchName = &branch
			}
		}
	}

	if d.RepositoryName == nil {
		d.RepositoryName = optional(detail.Get("additionalEventData.repositoryName"))
	}

	if d.CommitID == nil {
		log.Info("no commit id, dropping codecommit event")
		return models.Drop(), nil
	}

	res, err := finish(rec, d)
	log.Debug("end transforming codecommit event")
	return res, err
}

// authorName resolves the IAM identity behind the call: the IAM user, then
// the assumed role's issuer, then the session name part of the principal id.
func authorName(identity gjson.Result) *string {
	if !present(identity) {
		return nil
	}
	if v := optional(identity.Get("userName")); v != nil {
		return v
	}
	if v := optional(identity.Get("sessionContext.sessionIssuer.userName")); v != nil {
		return v
	}
	if p := identity.Get("principalId"); present(p) {
		if _, after, ok := strings.Cut(p.String(), ":"); ok {
			return &after
		}
	}
	return nil
}

func setIfPresent(dst **string, v gjson.Result) {
	if s := optional(v); s != nil {
		*dst = s
	}
}
