package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mosajjal/devops-events/pkg/auth"
)

func newSignCmd() *cobra.Command {
	var (
		secret string
		file   string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the X-Hub-Signature-256 value for a webhook record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			body, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			sig, err := auth.SignRequest(body, secret)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
			return err
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Webhook secret")
	cmd.Flags().StringVar(&file, "file", "-", "Webhook record, - for stdin")
	return cmd
}

func readInput(stdin io.Reader, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(file)
}
