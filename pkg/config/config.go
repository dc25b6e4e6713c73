package config

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Config is read from the Lambda environment
type Config struct {
	Region             string `arg:"env:AWS_REGION" default:"us-east-1"`
	S3AccessKeyID      string `arg:"env:S3_ACCESS_KEY_ID"`
	S3AccessKeySecret  string `arg:"env:S3_ACCESS_KEY_SECRET"`
	SolutionID         string `arg:"env:SolutionID" help:"prefix of the webhook secret name"`
	AlarmSolutionID    string `arg:"env:SOLUTION_ID" help:"solution id matched against alarm resources"`
	UseSecret          string `arg:"env:UseSecret" help:"yes: verify webhook signatures, no: verify source ip"`
	LogLevel           string `arg:"env:LOG_LEVEL" default:"INFO"`
	UserAgentExtra     string `arg:"env:userAgentExtra"`
	FailureURL         string `arg:"env:S3_FAILURE_URL" help:"example: https://YOURBUCKET.s3.us-east-1.amazonaws.com/YOURFOLDER/"`
	WebhookConcurrency int    `arg:"env:WEBHOOK_CONCURRENCY" default:"16"`
}

// Load parses the environment. args are command line arguments, normally nil
// inside Lambda.
func Load(args []string) (*Config, error) {
	var cfg Config
	p, err := arg.NewParser(arg.Config{Program: "devops-events"}, &cfg)
	if err != nil {
		return nil, fmt.Errorf("build parser: %w", err)
	}
	if err := p.Parse(args); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.AlarmSolutionID == "" {
		cfg.AlarmSolutionID = cfg.SolutionID
	}
	if cfg.WebhookConcurrency <= 0 {
		cfg.WebhookConcurrency = 1
	}
	return &cfg, nil
}

// WebhookSecretID is the Secrets Manager name of the GitHub webhook secret
func (c *Config) WebhookSecretID() string {
	return c.SolutionID + "/GitHubWebhookSecretToken"
}

// LoadAWS builds the SDK config. Static credentials are used when both keys
// are set, otherwise the default chain (the function role) applies.
func LoadAWS(ctx context.Context, c *Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if c.UserAgentExtra != "" {
		opts = append(opts, awsconfig.WithAppID(c.UserAgentExtra))
	}
	if c.S3AccessKeyID != "" && c.S3AccessKeySecret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3AccessKeyID, c.S3AccessKeySecret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}
