// Package pipeline is what happens to the container markup once an
// acquisition attempt has produced it.
package pipeline

import (
	"context"
	"fmt"
	"schedule-extractor/internal/acquire"
	"schedule-extractor/internal/assert"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/internal/schedule"
)

const (
	report_pipeline_process = "pipeline.process"
)

// Pipeline persists the raw markup, transforms it and persists the record.
// It implements acquire.Processor.
type Pipeline struct {
	artifacts acquire.Artifacts
	tel       telemetry.API

	record *schedule.Record
}

func New(artifacts acquire.Artifacts, tel telemetry.API) *Pipeline {
	assert.NotNil(tel)
	return &Pipeline{
		artifacts: artifacts,
		tel:       telemetry.NewScopedAPI("pipeline", tel),
	}
}

// Record is the record of the last successful Process, nil before that.
func (p *Pipeline) Record() *schedule.Record {
	return p.record
}

func (p *Pipeline) Process(ctx context.Context, markup string) error {
	err := p.artifacts.WriteRawMarkup(markup)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_process, fmt.Errorf("write raw markup: %w", err))
		return err
	}
	p.tel.ReportDebug("saved container markup", p.artifacts.RawMarkupPath(), len(markup))

	record, err := schedule.Parse(markup, p.tel)
	if err != nil {
		return acquire.Permanent(fmt.Errorf("transform container: %w", err))
	}

	err = p.artifacts.WriteRecord(record.WriteJSON)
	if err != nil {
		p.tel.ReportBroken(report_pipeline_process, fmt.Errorf("write record: %w", err))
		return err
	}
	p.tel.ReportDebug("saved record", p.artifacts.RecordPath(), record.Len(), record.EventCount())

	p.record = record
	return nil
}
