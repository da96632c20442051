// Package backend is the contract between the orchestrator and the external
// transcoding service: list pipelines, submit a job, read a job, and wait for
// a job to reach a terminal state.
//
// Job and pipeline records are plain structs carrying only the fields the
// orchestrator and the status reader consume. ElasticTranscoder implements the
// contract on AWS Elastic Transcoder.
package backend
