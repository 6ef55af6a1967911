package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"log/slog"
	"time"

	"github.com/mchmarny/raschctl/pkg/input"
	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/mchmarny/raschctl/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	fileFlagName     = "file"
	sectionsFlagName = "sections"
	saveFlagName     = "save"
	reportsFlagName  = "reports"
	nameFlagName     = "name"

	sectionsUsage = "Section definitions file or URL mapping names to 1-based item numbers (.yaml, .json)"
)

var errSectionsRequired = errors.New("sections file is required")

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     fileFlagName,
		Aliases:  []string{"f"},
		Usage:    "Response matrix file or http(s) URL (.csv, .json, .yaml)",
		Required: true,
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Calibrate items and estimate person abilities",
		Action: cmdAnalyze,
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{
				Name:  sectionsFlagName,
				Usage: sectionsUsage,
			},
			&cli.BoolFlag{
				Name:  saveFlagName,
				Usage: "Persist the result in the run store",
			},
			&cli.BoolFlag{
				Name:  reportsFlagName,
				Usage: "Include per-person T-score, grade and percentage reports",
			},
			&cli.StringFlag{
				Name:  nameFlagName,
				Usage: "Name of the saved run (default: first 8 characters of its ID)",
			},
		},
	}
}

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:   "report",
		Usage:  "Print per-person scores split by section",
		Action: cmdReport,
		Flags: []cli.Flag{
			fileFlag(),
			&cli.StringFlag{
				Name:     sectionsFlagName,
				Usage:    sectionsUsage,
				Required: true,
			},
		},
	}
}

type analysisRequest struct {
	Name     string
	Matrix   *rasch.ResponseMatrix
	Sections score.Sections
	Save     bool
	Reports  bool
}

type analysisResponse struct {
	RunID   string                `json:"run_id,omitempty" yaml:"runID,omitempty"`
	Result  *rasch.AnalysisResult `json:"result" yaml:"result"`
	Reports []score.Report        `json:"reports,omitempty" yaml:"reports,omitempty"`
}

// runAnalysis is shared by the CLI and the HTTP API.
func runAnalysis(ctx context.Context, cfg *appConfig, req *analysisRequest) (*analysisResponse, error) {
	if len(req.Sections) > 0 {
		if err := score.ValidateSections(req.Sections, req.Matrix.NumItems()); err != nil {
			return nil, err
		}
	}

	opts := append(cfg.Config.EngineOptions(), rasch.WithLogger(slog.Default()))
	start := time.Now()
	res, err := rasch.NewEngine(opts...).Analyze(req.Matrix)
	cfg.Metrics.ObserveAnalysis(res, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	slog.Info("analysis complete",
		"persons", res.NPersons,
		"items", res.NItems,
		"reliability", res.Reliability,
		"duration", time.Since(start).Round(time.Millisecond))

	resp := &analysisResponse{Result: res}
	if req.Reports || len(req.Sections) > 0 {
		resp.Reports, err = score.BuildReports(res, req.Matrix, req.Sections)
		if err != nil {
			return nil, fmt.Errorf("building reports: %w", err)
		}
	}

	if req.Save {
		store, err := cfg.openStore(ctx)
		if err != nil {
			return nil, err
		}
		run, err := store.SaveRun(ctx, req.Name, res)
		if err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		resp.RunID = run.ID
		slog.Info("run saved", "id", run.ID, "name", run.Name)
	}

	return resp, nil
}

func readRequest(ctx context.Context, cmd *cli.Command) (*analysisRequest, error) {
	m, err := input.ReadMatrix(ctx, cmd.String(fileFlagName))
	if err != nil {
		return nil, err
	}
	req := &analysisRequest{Matrix: m}
	if p := cmd.String(sectionsFlagName); p != "" {
		if req.Sections, err = input.ReadSections(ctx, p); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func cmdAnalyze(ctx context.Context, cmd *cli.Command) error {
	cfg, err := applyFlags(cmd)
	if err != nil {
		return err
	}

	req, err := readRequest(ctx, cmd)
	if err != nil {
		return err
	}
	req.Name = cmd.String(nameFlagName)
	req.Save = cmd.Bool(saveFlagName)
	req.Reports = cmd.Bool(reportsFlagName)

	resp, err := runAnalysis(ctx, cfg, req)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", cmd.String(fileFlagName), err)
	}
	return output(cmd, cfg, resp)
}

func cmdReport(ctx context.Context, cmd *cli.Command) error {
	if strings.TrimSpace(cmd.String(sectionsFlagName)) == "" {
		return errSectionsRequired
	}

	cfg, err := applyFlags(cmd)
	if err != nil {
		return err
	}

	req, err := readRequest(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := runAnalysis(ctx, cfg, req)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", cmd.String(fileFlagName), err)
	}
	return output(cmd, cfg, resp.Reports)
}
