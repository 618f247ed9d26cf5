package framework

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/firstglance/pkg/history"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

// RankRepository opens the repository at path, runs the pipeline over its
// history and returns the ranked report. Top limits the report to the first
// entries; zero keeps all of them.
func RankRepository(
	ctx context.Context, path string, hist history.Options, cfg Config, top int,
) (*report.Report, *Result, error) {
	provider, err := history.OpenGit(path, hist)
	if err != nil {
		return nil, nil, err
	}
	defer provider.Close()

	res, err := NewRunner(provider, cfg).Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	repository := path
	if abs, absErr := filepath.Abs(path); absErr == nil {
		repository = abs
	}

	rep := &report.Report{
		Repository:  repository,
		Reference:   provider.Reference().String(),
		Strategy:    string(res.Strategy),
		GeneratedAt: time.Now().UTC(),
		Files:       report.Top(report.Rank(res.Scores), top),
	}

	return rep, res, nil
}
