package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/webhooks/v6/github"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/models"
)

const (
	githubEventHeader = "additional-data.input-parameters.header"
	githubTime        = "2006-01-02 15:04:05.000"
)

type githubPush struct {
	RepositoryName string       `json:"repository_name"`
	BranchName     string       `json:"branch_name"`
	AuthorName     string       `json:"author_name"`
	Time           string       `json:"time"`
	EventName      github.Event `json:"event_name"`
	CommitIDs      []string     `json:"commit_id"`
}

// GitHub normalizes a webhook push event. Other webhook events are dropped,
// as are push events missing the fields the table needs.
func (t *Transformer) GitHub(raw []byte, ordinal int) (models.Result, error) {
	log := t.logger.With(zap.Int("record", ordinal))
	log.Debug("start transforming github event")

	if !gjson.GetBytes(raw, "ref").Exists() || !gjson.GetBytes(raw, "pusher").Exists() {
		log.Info("not a push event, dropping github event")
		return models.Drop(), nil
	}

	push, err := githubPushRecord(raw)
	if err != nil {
		log.Error("transforming github event failed", zap.Error(err))
		return models.Drop(), nil
	}

	if push.EventName != github.PushEvent {
		log.Debug("push shaped event with another event header", zap.String("event", string(push.EventName)))
	}

	b, err := json.Marshal(push)
	if err != nil {
		return models.Drop(), fmt.Errorf("marshal github push: %w", err)
	}
	log.Debug("end transforming github event")
	return models.Keep(b), nil
}

func githubPushRecord(raw []byte) (*githubPush, error) {
	doc := gjson.ParseBytes(raw)

	headers := doc.Get(githubEventHeader)
	if !headers.IsObject() {
		return nil, errors.New("missing request headers")
	}
	if !doc.Get("head_commit").IsObject() {
		return nil, errors.New("missing head_commit")
	}
	for _, path := range []string{"repository.name", "head_commit.author.name", "head_commit.timestamp"} {
		if !present(doc.Get(path)) {
			return nil, fmt.Errorf("missing %s", path)
		}
	}
	ts, err := parseTimestamp(doc.Get("head_commit.timestamp").String())
	if err != nil {
		return nil, fmt.Errorf("head_commit timestamp: %w", err)
	}

	push := &githubPush{
		RepositoryName: doc.Get("repository.name").String(),
		BranchName:     lastSegment(doc.Get("ref").String()),
		AuthorName:     doc.Get("head_commit.author.name").String(),
		Time:           ts.UTC().Format(githubTime) + " ",
		EventName:      github.Event(headers.Get("X-GitHub-Event").String()),
		CommitIDs:      []string{},
	}
	doc.Get("commits").ForEach(func(_, commit gjson.Result) bool {
		push.CommitIDs = append(push.CommitIDs, commit.Get("id").String())
		return true
	})
	return push, nil
}
