package main

import "github.com/spf13/cobra"

// newRootCmd returns the Cobra entrypoint for running parsers outside Lambda.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventctl",
		Short: "Run DevOps event parsers against a Firehose batch file",
		Long: "eventctl feeds a Firehose data-transformation request through one of the parsers, prints the " +
			"response and optionally forwards the transformed records to a Splunk HTTP Event Collector. " +
			"Parser settings are read from the same environment variables as the Lambda functions.",
		Example: "  eventctl run --parser events --file batch.json\n" +
			"  eventctl run --parser codebuild --file metrics.json --hec-endpoint https://splunk:8088 --hec-token $TOKEN\n" +
			"  eventctl sign --secret $SECRET --file webhook.json",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newSignCmd())
	return root
}
