package cli

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/mchmarny/raschctl/pkg/data"
	"github.com/mchmarny/raschctl/pkg/input"
	"github.com/mchmarny/raschctl/pkg/rasch"
	"github.com/mchmarny/raschctl/pkg/score"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	analyzeSchemaURL  = "schema://analyze.json"
	maxRequestBytes   = 32 << 20
	runListLimitQuery = "limit"
)

var (
	//go:embed schema/*.json
	schemaFS embed.FS

	analyzeSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		b, err := schemaFS.ReadFile("schema/analyze.json")
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("parse schema: %w", err)
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(analyzeSchemaURL, doc); err != nil {
			return nil, fmt.Errorf("add resource: %w", err)
		}
		return c.Compile(analyzeSchemaURL)
	})
)

type analyzeRequest struct {
	input.Document
	Name     string           `json:"name"`
	Sections map[string][]int `json:"sections"`
	Save     bool             `json:"save"`
	Reports  bool             `json:"reports"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps engine, section and store errors to HTTP status codes.
func errorStatus(err error) int {
	var ive *rasch.InvalidResponseValueError
	var ide *rasch.InsufficientDataError
	var se *score.SectionError
	switch {
	case errors.As(err, &ive),
		errors.As(err, &ide),
		errors.As(err, &se),
		errors.Is(err, rasch.ErrShape),
		errors.Is(err, score.ErrNoSections),
		errors.Is(err, score.ErrUndefinedScore):
		return http.StatusUnprocessableEntity
	case errors.Is(err, data.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeErrorFor(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// decodeAnalyzeRequest validates the body against the request schema before
// binding it.
func decodeAnalyzeRequest(r io.Reader) (*analyzeRequest, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	schema, err := analyzeSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var req analyzeRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("error binding json: %w", err)
	}
	return &req, nil
}

func healthAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
}

func analyzeAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeAnalyzeRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			slog.Debug("bad analyze request", "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		m, err := req.Matrix()
		if err != nil {
			writeErrorFor(w, err)
			return
		}

		resp, err := runAnalysis(r.Context(), cfg, &analysisRequest{
			Name:     req.Name,
			Matrix:   m,
			Sections: score.SectionsFromMap(req.Sections),
			Save:     req.Save,
			Reports:  req.Reports,
		})
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listRunsAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := cfg.openStore(r.Context())
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		list, err := store.ListRuns(r.Context(), queryParamInt(r, runListLimitQuery, data.RunListLimitDefault))
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getRunAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := cfg.openStore(r.Context())
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		run, err := store.GetRun(r.Context(), r.PathValue("id"))
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func deleteRunAPIHandler(cfg *appConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := cfg.openStore(r.Context())
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		if err := store.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
			writeErrorFor(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Debug("error converting query string to int", "value", v, "error", err)
		return def
	}
	return i
}
