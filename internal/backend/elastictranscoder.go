package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	et "github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	ettypes "github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
	"github.com/aws/smithy-go"

	"streamline/internal/logging"
)

// transcoderAPI is the subset of the SDK client used here.
type transcoderAPI interface {
	ListPipelines(ctx context.Context, in *et.ListPipelinesInput, optFns ...func(*et.Options)) (*et.ListPipelinesOutput, error)
	CreateJob(ctx context.Context, in *et.CreateJobInput, optFns ...func(*et.Options)) (*et.CreateJobOutput, error)
	ReadJob(ctx context.Context, in *et.ReadJobInput, optFns ...func(*et.Options)) (*et.ReadJobOutput, error)
}

// ElasticTranscoder implements Client on AWS Elastic Transcoder.
type ElasticTranscoder struct {
	api          transcoderAPI
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewElasticTranscoder builds a client from an aws.Config. A non-empty
// endpoint overrides the regional service endpoint.
func NewElasticTranscoder(cfg aws.Config, endpoint string, pollInterval time.Duration, logger *slog.Logger) *ElasticTranscoder {
	api := et.NewFromConfig(cfg, func(o *et.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return newElasticTranscoder(api, pollInterval, logger)
}

func newElasticTranscoder(api transcoderAPI, pollInterval time.Duration, logger *slog.Logger) *ElasticTranscoder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ElasticTranscoder{
		api:          api,
		pollInterval: pollInterval,
		logger:       logger.With(logging.String(logging.FieldComponent, "backend")),
	}
}

// ListPipelines returns every pipeline, following pagination.
func (c *ElasticTranscoder) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	var (
		pipelines []Pipeline
		token     *string
	)
	for {
		out, err := c.api.ListPipelines(ctx, &et.ListPipelinesInput{PageToken: token})
		if err != nil {
			return nil, fmt.Errorf("list pipelines: %w", translateError(err))
		}
		for _, p := range out.Pipelines {
			pipelines = append(pipelines, Pipeline{
				ID:     aws.ToString(p.Id),
				Name:   aws.ToString(p.Name),
				Status: aws.ToString(p.Status),
			})
		}
		if aws.ToString(out.NextPageToken) == "" {
			return pipelines, nil
		}
		token = out.NextPageToken
	}
}

// SubmitJob creates a job on the given pipeline.
func (c *ElasticTranscoder) SubmitJob(ctx context.Context, submission JobSubmission) (Job, error) {
	in := &et.CreateJobInput{
		PipelineId:      aws.String(submission.PipelineID),
		OutputKeyPrefix: aws.String(submission.OutputKeyPrefix),
		UserMetadata:    submission.UserMetadata,
		Input: &ettypes.JobInput{
			Key:         aws.String(submission.Input.Key),
			FrameRate:   aws.String(submission.Input.FrameRate),
			Resolution:  aws.String(submission.Input.Resolution),
			AspectRatio: aws.String(submission.Input.AspectRatio),
			Interlaced:  aws.String(submission.Input.Interlaced),
			Container:   aws.String(submission.Input.Container),
		},
	}
	if submission.Input.ClipDuration != "" {
		in.Input.TimeSpan = &ettypes.TimeSpan{Duration: aws.String(submission.Input.ClipDuration)}
	}
	for _, o := range submission.Outputs {
		out := ettypes.CreateJobOutput{
			Key:             aws.String(o.Key),
			PresetId:        aws.String(o.PresetID),
			Rotate:          optional(o.Rotate),
			SegmentDuration: optional(o.SegmentDuration),
		}
		if o.ThumbnailPattern != "" {
			out.ThumbnailPattern = aws.String(o.ThumbnailPattern)
		}
		in.Outputs = append(in.Outputs, out)
	}
	for _, p := range submission.Playlists {
		in.Playlists = append(in.Playlists, ettypes.CreateJobPlaylist{
			Name:       aws.String(p.Name),
			Format:     aws.String(p.Format),
			OutputKeys: append([]string(nil), p.OutputKeys...),
		})
	}

	out, err := c.api.CreateJob(ctx, in)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", translateError(err))
	}
	if out.Job == nil {
		return Job{}, errors.New("create job: empty response")
	}
	job := fromSDKJob(out.Job)
	c.logger.Info("backend job created",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("pipeline_id", submission.PipelineID),
		logging.Int("outputs", len(submission.Outputs)),
		logging.Int("playlists", len(submission.Playlists)),
	)
	return job, nil
}

// ReadJob fetches the current job record.
func (c *ElasticTranscoder) ReadJob(ctx context.Context, id string) (Job, error) {
	out, err := c.api.ReadJob(ctx, &et.ReadJobInput{Id: aws.String(id)})
	if err != nil {
		return Job{}, fmt.Errorf("read job %s: %w", id, translateError(err))
	}
	if out.Job == nil {
		return Job{}, fmt.Errorf("read job %s: %w", id, ErrJobNotFound)
	}
	return fromSDKJob(out.Job), nil
}

// AwaitCompletion polls ReadJob until the job is terminal.
func (c *ElasticTranscoder) AwaitCompletion(ctx context.Context, id string) (Job, error) {
	job, err := AwaitByPolling(ctx, c, id, c.pollInterval)
	if err != nil {
		return Job{}, err
	}
	c.logger.Debug("backend job terminal",
		logging.String(logging.FieldJobID, id),
		logging.String("status", job.Status),
	)
	return job, nil
}

func fromSDKJob(j *ettypes.Job) Job {
	job := Job{
		ID:              aws.ToString(j.Id),
		PipelineID:      aws.ToString(j.PipelineId),
		Status:          aws.ToString(j.Status),
		OutputKeyPrefix: aws.ToString(j.OutputKeyPrefix),
		UserMetadata:    j.UserMetadata,
	}
	if j.Input != nil {
		job.InputKey = aws.ToString(j.Input.Key)
	}
	for _, o := range j.Outputs {
		job.Outputs = append(job.Outputs, OutputRecord{
			Key:          aws.ToString(o.Key),
			PresetID:     aws.ToString(o.PresetId),
			Status:       aws.ToString(o.Status),
			StatusDetail: aws.ToString(o.StatusDetail),
		})
	}
	for _, p := range j.Playlists {
		job.Playlists = append(job.Playlists, PlaylistRecord{
			Name:   aws.ToString(p.Name),
			Format: aws.ToString(p.Format),
			Status: aws.ToString(p.Status),
		})
	}
	return job
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return aws.String(v)
}

func translateError(err error) error {
	var notFound *ettypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrJobNotFound, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("%w: %v", ErrJobNotFound, err)
	}
	return err
}
