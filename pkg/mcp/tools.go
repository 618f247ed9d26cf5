package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/firstglance/pkg/config"
	"github.com/Sumatoshi-tech/firstglance/pkg/framework"
	"github.com/Sumatoshi-tech/firstglance/pkg/report"
)

// ToolNameRank is the name of the ranking tool.
const ToolNameRank = "firstglance_rank"

const (
	// defaultMCPCommitLimit bounds history walks an agent triggers without
	// asking for a limit.
	defaultMCPCommitLimit = 1000
	// defaultMCPTop bounds the ranked list returned to an agent.
	defaultMCPTop = 50
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter is empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")
	// ErrRepoPathNotAbsolute indicates the repo_path is not an absolute path.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")
	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
	// ErrNegativeArgument indicates a count argument below zero.
	ErrNegativeArgument = errors.New("numeric arguments must not be negative")
)

// RankInput is the input schema for the firstglance_rank tool.
type RankInput struct {
	ExcludeSubstrings []string `json:"exclude_substrings,omitempty" jsonschema:"skip files whose path contains any of these (default: test)"`
	FirstParent       bool     `json:"first_parent,omitempty"       jsonschema:"follow only the first parent of merge commits"`
	Languages         []string `json:"languages,omitempty"          jsonschema:"only rank files of these languages (e.g. go python)"`
	Limit             int      `json:"limit,omitempty"              jsonschema:"maximum number of commits to read (default: 1000)"`
	MaxCommitFiles    int      `json:"max_commit_files,omitempty"   jsonschema:"ignore commits that changed more files than this"`
	Ref               string   `json:"ref,omitempty"                jsonschema:"revision to rank (default: HEAD)"`
	RepoPath          string   `json:"repo_path"                    jsonschema:"absolute path to a Git repository"`
	Since             string   `json:"since,omitempty"              jsonschema:"only read commits after this time (e.g. 720h or 2024-01-01)"`
	Strategy          string   `json:"strategy,omitempty"           jsonschema:"shortest-path algorithm: dijkstra or floyd-warshall"`
	Top               int      `json:"top,omitempty"                jsonschema:"number of ranked files to return (default: 50)"`
	Workers           int      `json:"workers,omitempty"            jsonschema:"goroutines for the centrality evaluation"`
}

// RankStats summarises the history behind a ranking.
type RankStats struct {
	Commits          int `json:"commits"`
	OversizeCommits  int `json:"oversize_commits"`
	EmptyCommits     int `json:"empty_commits"`
	FailedCommits    int `json:"failed_commits"`
	Files            int `json:"files"`
	UnreachablePairs int `json:"unreachable_pairs"`
}

// RankOutput is the structured result of the firstglance_rank tool.
type RankOutput struct {
	Report *report.Report `json:"report"`
	Stats  RankStats      `json:"stats"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// handleRank processes firstglance_rank tool calls.
func (s *Server) handleRank(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input RankInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateRankInput(input)
	if err != nil {
		return errorResult(err)
	}

	cfg := s.rankConfig(input)

	err = cfg.Validate()
	if err != nil {
		return errorResult(err)
	}

	histOpts, err := cfg.HistoryOptions()
	if err != nil {
		return errorResult(err)
	}

	centOpts, err := cfg.CentralityOptions()
	if err != nil {
		return errorResult(err)
	}

	rep, res, err := framework.RankRepository(ctx, input.RepoPath, histOpts, framework.Config{
		Graph:      cfg.GraphOptions(),
		Centrality: centOpts,
		Logger:     s.logger(),
		Tracer:     s.tracer,
		Metrics:    s.deps.Pipeline,
	}, cfg.Output.Top)
	if err != nil {
		return errorResult(fmt.Errorf("rank %s: %w", input.RepoPath, err))
	}

	return jsonResult(RankOutput{
		Report: rep,
		Stats: RankStats{
			Commits:          res.Build.Commits + res.FailedCommits,
			OversizeCommits:  res.Build.OversizeCommits,
			EmptyCommits:     res.Build.EmptyCommits,
			FailedCommits:    res.FailedCommits,
			Files:            res.Graph.Order(),
			UnreachablePairs: res.Scores.Stats().UnreachablePairs,
		},
	})
}

// rankConfig layers the tool arguments over the server defaults.
func (s *Server) rankConfig(input RankInput) *config.Config {
	cfg := config.Default()
	if s.deps.Config != nil {
		copied := *s.deps.Config
		cfg = &copied
	}

	if cfg.History.Limit == 0 {
		cfg.History.Limit = defaultMCPCommitLimit
	}

	if cfg.Output.Top == 0 {
		cfg.Output.Top = defaultMCPTop
	}

	if input.ExcludeSubstrings != nil {
		cfg.Filter.ExcludeSubstrings = input.ExcludeSubstrings
	}

	if input.Languages != nil {
		cfg.Filter.Languages = input.Languages
	}

	if input.Ref != "" {
		cfg.History.Ref = input.Ref
	}

	if input.Since != "" {
		cfg.History.Since = input.Since
	}

	if input.FirstParent {
		cfg.History.FirstParent = true
	}

	if input.Limit > 0 {
		cfg.History.Limit = input.Limit
	}

	if input.MaxCommitFiles > 0 {
		cfg.Graph.MaxCommitFiles = input.MaxCommitFiles
	}

	if input.Strategy != "" {
		cfg.Centrality.Strategy = input.Strategy
	}

	if input.Workers > 0 {
		cfg.Centrality.Workers = input.Workers
	}

	if input.Top > 0 {
		cfg.Output.Top = input.Top
	}

	return cfg
}

func (s *Server) logger() *slog.Logger {
	if s.deps.Logger != nil {
		return s.deps.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// validateRankInput validates the rank tool input parameters.
func validateRankInput(input RankInput) error {
	if input.RepoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(input.RepoPath) {
		return ErrRepoPathNotAbsolute
	}

	if input.Limit < 0 || input.Top < 0 || input.Workers < 0 || input.MaxCommitFiles < 0 {
		return ErrNegativeArgument
	}

	info, err := os.Stat(input.RepoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, input.RepoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, input.RepoPath)
	}

	_, err = os.Stat(filepath.Join(input.RepoPath, ".git"))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, input.RepoPath)
	}

	return nil
}
