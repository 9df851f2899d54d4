// Package tools exposes the screening client to MCP hosts: listing
// batches and job descriptions, running rankings and reading dashboard
// activity, all through the same cache and orchestrator the CLI uses.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"cvscreen/internal/api"
	"cvscreen/internal/rankview"
	"cvscreen/internal/screening"
	"cvscreen/internal/timeseries"
)

// Reader serves the cached list and dashboard reads.
type Reader interface {
	FetchBatches(ctx context.Context, page, pageSize int) (api.BatchPage, error)
	FetchJDs(ctx context.Context, page, pageSize int) (api.JDPage, error)
	FetchDashboard(ctx context.Context) (api.DashboardAggregate, error)
}

// Ranker runs scoring. Satisfied by the screening orchestrator.
type Ranker interface {
	Rank(ctx context.Context, p screening.RankParams) (api.RankingRun, error)
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Reader     Reader
	Ranker     Ranker
	WindowDays int // dashboard activity window; <=0 falls back to 14
	PageSize   int // default page size for list tools; <=0 falls back to 20
}

// NewMCPServer creates an MCP server with the screening tools registered.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"cvscreen",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("Resume screening client. Browse uploaded batches and job descriptions, rank resumes against a job description, and inspect recent activity."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_batches",
			mcp.WithDescription("List uploaded resume batches with their processing status."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("page_size", mcp.Description("Items per page")),
		),
		mcpListBatches(deps),
	)

	s.AddTool(
		mcp.NewTool("list_job_descriptions",
			mcp.WithDescription("List job descriptions available as ranking targets."),
			mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
			mcp.WithNumber("page_size", mcp.Description("Items per page")),
		),
		mcpListJDs(deps),
	)

	s.AddTool(
		mcp.NewTool("rank_resumes",
			mcp.WithDescription("Rank uploaded resumes against a job description by similarity score."),
			mcp.WithString("jd_id", mcp.Description("Job description ID to rank against"), mcp.Required()),
			mcp.WithString("batch_id", mcp.Description("Restrict ranking to one batch")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 50, max 200)")),
			mcp.WithNumber("min_score", mcp.Description("Minimum similarity score between 0 and 1")),
		),
		mcpRankResumes(deps),
	)

	s.AddTool(
		mcp.NewTool("dashboard_activity",
			mcp.WithDescription("Account totals plus a per-day activity series over the recent window."),
		),
		mcpDashboardActivity(deps),
	)

	return s
}

func (d Deps) pageSize() int {
	if d.PageSize > 0 {
		return d.PageSize
	}
	return 20
}

func (d Deps) windowDays() int {
	if d.WindowDays > 0 {
		return d.WindowDays
	}
	return 14
}

func mcpListBatches(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		page := req.GetInt("page", 1)
		pageSize := req.GetInt("page_size", deps.pageSize())

		result, err := deps.Reader.FetchBatches(ctx, page, pageSize)
		if err != nil {
			return mcpError(fmt.Sprintf("listing batches failed: %v", err)), nil
		}
		return mcpJSON(result)
	}
}

func mcpListJDs(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		page := req.GetInt("page", 1)
		pageSize := req.GetInt("page_size", deps.pageSize())

		result, err := deps.Reader.FetchJDs(ctx, page, pageSize)
		if err != nil {
			return mcpError(fmt.Sprintf("listing job descriptions failed: %v", err)), nil
		}
		return mcpJSON(result)
	}
}

func mcpRankResumes(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jdID, err := req.RequireString("jd_id")
		if err != nil {
			return mcpError("jd_id is required"), nil
		}

		params := screening.RankParams{
			JDID:    jdID,
			BatchID: req.GetString("batch_id", ""),
			Limit:   req.GetInt("limit", 0),
		}
		if min := req.GetFloat("min_score", -1); min >= 0 {
			params.MinScore = &min
		}

		run, err := deps.Ranker.Rank(ctx, params)
		if err != nil {
			return mcpError(fmt.Sprintf("ranking failed: %v", err)), nil
		}

		type rankedRow struct {
			ResumeID string  `json:"resume_id"`
			Filename string  `json:"filename"`
			Position int     `json:"position"`
			Score    string  `json:"score"`
			Band     string  `json:"band"`
			Raw      float64 `json:"raw_score"`
		}
		rows := make([]rankedRow, len(run.Results))
		for i, r := range run.Results {
			rows[i] = rankedRow{
				ResumeID: r.ResumeID,
				Filename: r.Filename,
				Position: r.RankPosition,
				Score:    rankview.FormatScore(r.SimilarityScore),
				Band:     string(rankview.ScoreBand(r.SimilarityScore)),
				Raw:      r.SimilarityScore,
			}
		}

		return mcpJSON(map[string]any{
			"run_id":  run.RunID,
			"jd_id":   run.JDID,
			"summary": rankview.Summary(run),
			"results": rows,
		})
	}
}

func mcpDashboardActivity(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agg, err := deps.Reader.FetchDashboard(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching dashboard failed: %v", err)), nil
		}

		type activityRow struct {
			Date    string `json:"date"`
			Uploads int    `json:"uploads"`
			Runs    int    `json:"runs"`
			JDs     int    `json:"jds"`
		}
		bins := timeseries.Bin(agg, deps.windowDays(), time.Now())
		activity := make([]activityRow, len(bins))
		for i, b := range bins {
			activity[i] = activityRow{Date: b.DateKey, Uploads: b.Uploads, Runs: b.Runs, JDs: b.JDs}
		}

		return mcpJSON(map[string]any{
			"total_resumes": agg.TotalResumes,
			"total_batches": agg.TotalBatches,
			"total_jds":     agg.TotalJDs,
			"total_runs":    agg.TotalRuns,
			"activity":      activity,
		})
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
