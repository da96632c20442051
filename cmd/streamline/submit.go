package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamline/internal/jobstatus"
	"streamline/internal/preset"
	"streamline/internal/streaming"
)

type submitFlags struct {
	file string

	inputService    string
	inputContainer  string
	inputPath       string
	outputService   string
	outputContainer string
	pathPrefix      string
	targets         []string
	qualities       []string
	thumbnail       bool

	wait     bool
	interval time.Duration
	timeout  time.Duration
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transcoding request",
		Long: `Submit a transcoding request to the daemon.

The request is read from a JSON file (-f, "-" for stdin) or assembled from
flags:

  streamline submit --input-service local --input-container media \
    --input-path raw/clip.mp4 --output-service bucket \
    --output-container media --prefix clips/1 --target IOS --quality HD`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, flags)
			if err != nil {
				return err
			}

			client := ctx.client()
			sub, err := client.Submit(cmd.Context(), req)
			if err != nil {
				return wrapDialError(err, ctx.apiAddress())
			}

			if !flags.wait {
				if wantJSON(cmd, ctx.outputFormat()) {
					return writeJSON(cmd, sub)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%s)\n", sub.ID, label(sub.Status.String()))
				return nil
			}

			waitCtx := cmd.Context()
			if flags.timeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, flags.timeout)
				defer cancel()
			}
			view, err := waitForJob(waitCtx, flags.interval, sub.ID, client.Status)
			if err != nil {
				return fmt.Errorf("wait for job %s: %w", sub.ID, err)
			}
			if err := renderView(cmd, ctx.outputFormat(), view); err != nil {
				return err
			}
			if view.Status == jobstatus.StatusError {
				return fmt.Errorf("job %s failed: %s", view.ID, view.ErrorMessage)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.file, "file", "f", "", "JSON request file (\"-\" reads stdin)")
	f.StringVar(&flags.inputService, "input-service", "", "Input service: local, bucket or url")
	f.StringVar(&flags.inputContainer, "input-container", "", "Input container (not used for url)")
	f.StringVar(&flags.inputPath, "input-path", "", "Input key, or the full url")
	f.StringVar(&flags.outputService, "output-service", "", "Output service: local, bucket or backend")
	f.StringVar(&flags.outputContainer, "output-container", "", "Output container")
	f.StringVar(&flags.pathPrefix, "prefix", "", "Output path prefix")
	f.StringSliceVar(&flags.targets, "target", nil, "Target platform (repeatable): IOS, ANDROID, WEB_MPEG_DASH")
	f.StringSliceVar(&flags.qualities, "quality", nil, "Quality tier (repeatable): SD, HD, FHD, UHD")
	f.BoolVar(&flags.thumbnail, "thumbnail", false, "Generate thumbnails")
	f.BoolVarP(&flags.wait, "wait", "w", false, "Poll until the job finishes")
	f.DurationVar(&flags.interval, "interval", 5*time.Second, "Polling interval for --wait")
	f.DurationVar(&flags.timeout, "timeout", 0, "Give up waiting after this long (0 waits forever)")
	return cmd
}

func buildRequest(cmd *cobra.Command, flags submitFlags) (streaming.Request, error) {
	if path := strings.TrimSpace(flags.file); path != "" {
		var reader io.Reader
		if path == "-" {
			reader = cmd.InOrStdin()
		} else {
			file, err := os.Open(path)
			if err != nil {
				return streaming.Request{}, fmt.Errorf("open request file: %w", err)
			}
			defer file.Close()
			reader = file
		}
		return streaming.Decode(reader)
	}

	if flags.inputService == "" && flags.outputService == "" {
		return streaming.Request{}, errors.New("provide a request file with -f or the --input-*/--output-* flags")
	}

	targets := make([]preset.Target, 0, len(flags.targets))
	for _, value := range flags.targets {
		t, err := preset.ParseTarget(value)
		if err != nil {
			return streaming.Request{}, err
		}
		targets = append(targets, t)
	}
	qualities := make([]preset.Quality, 0, len(flags.qualities))
	for _, value := range flags.qualities {
		q, err := preset.ParseQuality(value)
		if err != nil {
			return streaming.Request{}, err
		}
		qualities = append(qualities, q)
	}

	return streaming.Request{
		Input: &streaming.Input{
			Service:   streaming.Service(strings.ToLower(flags.inputService)),
			Container: flags.inputContainer,
			Path:      flags.inputPath,
		},
		Output: &streaming.Output{
			Service:    streaming.Service(strings.ToLower(flags.outputService)),
			Container:  flags.outputContainer,
			PathPrefix: flags.pathPrefix,
			Targets:    targets,
			Qualities:  qualities,
			Thumbnail:  flags.thumbnail,
		},
	}, nil
}

type statusFunc func(ctx context.Context, jobID string) (jobstatus.View, error)

// waitForJob polls until the job reaches a terminal status.
func waitForJob(ctx context.Context, interval time.Duration, jobID string, status statusFunc) (jobstatus.View, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view, err := status(ctx, jobID)
		if err != nil {
			return jobstatus.View{}, err
		}
		if view.Status.Terminal() {
			return view, nil
		}
		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-ticker.C:
		}
	}
}
