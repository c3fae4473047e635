package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"vidgen-gateway/poller"
)

func newWatchCommand() *cobra.Command {
	var server string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <video-id>",
		Short: "Follow a generation job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := poller.NewClient(server, 30*time.Second)
			p := &poller.Poller{
				Fetcher:  client,
				Interval: interval,
				OnUpdate: newStepPrinter(cmd.OutOrStdout()),
			}
			res, err := p.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return reportOutcome(cmd.OutOrStdout(), client, args[0], res)
		},
	}
	serverFlag(cmd, &server)
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "Polling interval")
	return cmd
}

// newStepPrinter prints each step once, however often it is polled.
func newStepPrinter(out io.Writer) func(*poller.Status) {
	var lastStep *int
	var lastMessage string
	return func(st *poller.Status) {
		if st.Step == nil {
			return
		}
		msg := ""
		if st.Message != nil {
			msg = *st.Message
		}
		if lastStep != nil && *lastStep == *st.Step && lastMessage == msg {
			return
		}
		step := *st.Step
		lastStep, lastMessage = &step, msg
		fmt.Fprintf(out, "[step %d] %s\n", step, msg)
	}
}

func reportOutcome(out io.Writer, client *poller.Client, videoID string, res *poller.Result) error {
	switch res.Outcome {
	case poller.OutcomeNotFound:
		return fmt.Errorf("video %s not found", videoID)
	case poller.OutcomeFailed:
		reason := "unknown error"
		if res.Status.Error != nil && *res.Status.Error != "" {
			reason = *res.Status.Error
		}
		return fmt.Errorf("generation failed: %s", reason)
	}

	st := res.Status
	if st.FilePath == nil {
		fmt.Fprintln(out, "Generation completed; the video file is not available yet.")
		return nil
	}
	fmt.Fprintf(out, "Video ready: %s\n", client.MediaURL(*st.FilePath))
	if st.Duration != nil {
		fmt.Fprintf(out, "Duration: %s\n", formatDuration(*st.Duration))
	}
	return nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
