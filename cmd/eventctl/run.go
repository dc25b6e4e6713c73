package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mosajjal/devops-events/pkg/app"
	"github.com/mosajjal/devops-events/pkg/dispatch"
	"github.com/mosajjal/devops-events/pkg/hec"
	"github.com/mosajjal/devops-events/pkg/models"
	"github.com/mosajjal/devops-events/pkg/storage"
)

type runOptions struct {
	parser  string
	file    string
	archive bool
	hec     hec.Config
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transform a batch file and print the Firehose response",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.parser, "parser", "events", "Parser to run: events, github or codebuild")
	cmd.Flags().StringVar(&opts.file, "file", "-", "Batch file, - for stdin")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Store failed records at S3_FAILURE_URL")
	cmd.Flags().StringSliceVar(&opts.hec.Endpoints, "hec-endpoint", nil, "HEC endpoints to forward Ok records to")
	cmd.Flags().StringVar(&opts.hec.Token, "hec-token", "", "HEC token")
	cmd.Flags().StringVar(&opts.hec.Index, "hec-index", "main", "HEC index")
	cmd.Flags().StringVar(&opts.hec.Source, "hec-source", "devops-events", "HEC source")
	cmd.Flags().StringVar(&opts.hec.SourceType, "hec-sourcetype", "_json", "HEC sourcetype")
	cmd.Flags().StringVar(&opts.hec.Host, "hec-host", "eventctl", "HEC host")
	cmd.Flags().BoolVar(&opts.hec.TLSSkipVerify, "hec-tls-skip-verify", false, "Skip HEC TLS verification")
	cmd.Flags().DurationVar(&opts.hec.Timeout, "hec-timeout", 5*time.Second, "HEC request timeout")
	cmd.Flags().StringVar(&opts.hec.BalanceStrategy, "hec-balance", "first_available", "HEC balance strategy: first_available or roundrobin")
	return cmd
}

func runBatch(ctx context.Context, stdin io.Reader, stdout io.Writer, opts runOptions) error {
	batch, err := readBatch(stdin, opts.file)
	if err != nil {
		return err
	}

	a, err := app.New(nil)
	if err != nil {
		return err
	}
	defer a.Logger.Sync()

	handler, err := buildHandler(ctx, a, opts)
	if err != nil {
		return err
	}
	resp, err := handler(ctx, batch)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	if len(opts.hec.Endpoints) == 0 {
		return nil
	}
	client, err := hec.NewClient(opts.hec, a.Logger)
	if err != nil {
		return err
	}
	defer client.Close()
	n, err := client.Forward(ctx, resp)
	if err != nil {
		return fmt.Errorf("forward to HEC: %w", err)
	}
	a.Logger.Info("forwarded batch", zap.Int("events", n))
	return nil
}

func buildHandler(ctx context.Context, a *app.App, opts runOptions) (dispatch.Handler, error) {
	var archive storage.Backend
	if opts.archive {
		archive = a.Archive(ctx)
	}
	switch opts.parser {
	case "events":
		return dispatch.NewEvents(a.Transformer, archive, a.Logger).Handle, nil
	case "codebuild":
		return dispatch.NewCodeBuild(a.Transformer, archive, a.Logger).Handle, nil
	case "github":
		authorizer, err := a.Authorizer(ctx)
		if err != nil {
			return nil, err
		}
		return dispatch.NewGitHub(authorizer, a.Transformer, archive, a.Config.WebhookConcurrency, a.Logger).Handle, nil
	default:
		return nil, fmt.Errorf("unknown parser %q", opts.parser)
	}
}

func readBatch(stdin io.Reader, file string) (models.Batch, error) {
	var r io.Reader = stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return models.Batch{}, fmt.Errorf("open batch: %w", err)
		}
		defer f.Close()
		r = f
	}
	var batch models.Batch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return models.Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	return batch, nil
}
