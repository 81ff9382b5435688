// Package teamwork talks to the Teamwork project API. Earlier tasks that
// mention a name are turned into evidence, and evaluations can be posted back
// as tasks or comments.
package teamwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/render"
	"github.com/dshills/termcheck/internal/schema"
)

// DefaultDomain is the Teamwork site used when none is configured.
const DefaultDomain = "cultureflipper"

// EnvAPIKey names the environment variable holding the API key.
const EnvAPIKey = "TEAMWORK_API_KEY"

// TrustedSince is the first day whose records count as evidence.
var TrustedSince = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrNoAPIKey is returned when no API key is available.
var ErrNoAPIKey = errors.New("teamwork: " + EnvAPIKey + " not set")

// evaluationPrefix starts the title of every task termcheck posts.
const evaluationPrefix = "Name Evaluation:"

// Verification statuses.
const (
	StatusVerified    = "Verified - previous evaluations found"
	StatusPriorTasks  = "Prior translations found - detailed verification needed"
	StatusNotFound    = "Not found in Teamwork records"
	maxErrorBodyBytes = 512
)

// ID accepts both the numeric and the string identifiers Teamwork returns.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = ID(strings.Trim(string(b), `"`))
	return nil
}

// Project is a Teamwork project.
type Project struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Task is a Teamwork task ("todo item").
type Task struct {
	ID          ID     `json:"id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	CreatedOn   string `json:"created-on"`
	ProjectID   ID     `json:"project-id"`
	ProjectName string `json:"project-name"`
	URL         string `json:"-"`
}

// Created parses the task's creation time.
func (t Task) Created() (time.Time, bool) {
	ts, err := time.Parse(time.RFC3339, t.CreatedOn)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// IsEvaluation reports whether the task was posted by termcheck.
func (t Task) IsEvaluation() bool {
	return strings.Contains(strings.ToLower(t.Content), strings.ToLower(evaluationPrefix))
}

// Verification summarises what Teamwork knows about a name.
type Verification struct {
	Name        string `json:"name"`
	Found       bool   `json:"found_in_teamwork"`
	PriorTasks  []Task `json:"previous_translations"`
	Evaluations []Task `json:"previous_evaluations"`
	Status      string `json:"verification_status"`
}

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("teamwork: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Client is a Teamwork API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the site URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for domain (DefaultDomain when empty).
func New(apiKey, domain string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if domain == "" {
		domain = DefaultDomain
	}
	c := &Client{
		baseURL: "https://" + domain + ".teamwork.com",
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromEnv reads the API key from TEAMWORK_API_KEY.
func NewFromEnv(domain string, opts ...Option) (*Client, error) {
	return New(os.Getenv(EnvAPIKey), domain, opts...)
}

// Name identifies the client as an evidence source.
func (c *Client) Name() string { return catalogue.SourceTeamwork }

// Projects lists active projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects.json?status=active", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Tasks lists the tasks of a project.
func (c *Client) Tasks(ctx context.Context, projectID ID) ([]Task, error) {
	var out struct {
		Tasks []Task `json:"todo-items"`
	}
	path := "/projects/" + url.PathEscape(string(projectID)) + "/tasks.json"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// SearchTasks returns tasks of active projects whose title or description
// contains query, case-insensitively. A project whose tasks cannot be listed
// is logged and skipped.
func (c *Client) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Task
	for _, p := range projects {
		tasks, err := c.Tasks(ctx, p.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.WarnContext(ctx, "listing project tasks failed", "project", p.Name, "error", err)
			continue
		}
		for _, t := range tasks {
			if !strings.Contains(strings.ToLower(t.Content), q) && !strings.Contains(strings.ToLower(t.Description), q) {
				continue
			}
			t.ProjectID = p.ID
			t.ProjectName = p.Name
			t.URL = c.baseURL + "/tasks/" + string(t.ID)
			out = append(out, t)
		}
	}
	return out, nil
}

// Lookup returns earlier tasks mentioning name as evidence. Tasks created
// before TrustedSince, or with no readable creation date, are dropped. The
// payload is the notation parsed from the task title, if any.
func (c *Client) Lookup(ctx context.Context, name string) ([]schema.EvidenceItem, error) {
	tasks, err := c.SearchTasks(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("teamwork: lookup %q: %w", name, err)
	}
	var out []schema.EvidenceItem
	for _, t := range tasks {
		created, ok := t.Created()
		if !ok || created.Before(TrustedSince) {
			c.logger.DebugContext(ctx, "dropping untrusted task", "task", t.ID, "created_on", t.CreatedOn)
			continue
		}
		out = append(out, schema.EvidenceItem{
			SourceID: catalogue.SourceTeamwork,
			Position: len(out) + 1,
			Payload:  NotationFromTitle(t.Content, name),
		})
	}
	return out, nil
}

// VerificationStatus reports whether name has been evaluated or translated
// in Teamwork before.
func (c *Client) VerificationStatus(ctx context.Context, name string) (Verification, error) {
	tasks, err := c.SearchTasks(ctx, name)
	if err != nil {
		return Verification{Name: name}, fmt.Errorf("teamwork: verify %q: %w", name, err)
	}
	v := Verification{Name: name, Found: len(tasks) > 0, PriorTasks: tasks}
	for _, t := range tasks {
		if t.IsEvaluation() {
			v.Evaluations = append(v.Evaluations, t)
		}
	}
	switch {
	case len(v.Evaluations) > 0:
		v.Status = StatusVerified
	case len(tasks) > 0:
		v.Status = StatusPriorTasks
	default:
		v.Status = StatusNotFound
	}
	return v, nil
}

// PostEvaluation creates a task in projectID describing rep and returns the
// new task id.
func (c *Client) PostEvaluation(ctx context.Context, projectID string, rep schema.ComplianceReport) (string, error) {
	if projectID == "" {
		return "", errors.New("teamwork: post evaluation: empty project id")
	}
	body := map[string]any{
		"todo-item": map[string]string{
			"content":     EvaluationTitle(rep),
			"description": render.ReportMarkdown(rep),
		},
	}
	var out struct {
		ID     ID `json:"id"`
		TaskID ID `json:"taskId"`
	}
	path := "/projects/" + url.PathEscape(projectID) + "/tasks.json"
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	if out.TaskID != "" {
		return string(out.TaskID), nil
	}
	return string(out.ID), nil
}

// CommentEvaluation adds rep as a comment on an existing task.
func (c *Client) CommentEvaluation(ctx context.Context, taskID string, rep schema.ComplianceReport) error {
	if taskID == "" {
		return errors.New("teamwork: comment evaluation: empty task id")
	}
	body := map[string]any{
		"comment": map[string]string{
			"body": render.ReportMarkdown(rep),
		},
	}
	path := "/tasks/" + url.PathEscape(taskID) + "/comments.json"
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// EvaluationTitle is the task title used for rep.
func EvaluationTitle(rep schema.ComplianceReport) string {
	return fmt.Sprintf("%s %s → %s", evaluationPrefix, rep.SourceText, rep.Notation)
}

var titleSeparators = []string{"→", "->", "=>", " - ", ":", "="}

// NotationFromTitle extracts the notation paired with name in a task title
// such as "김지원 → Kim Ji-won" or "Name Evaluation: 김지원 → Kim Ji-won".
// Returns "" when the title does not pair name with anything.
func NotationFromTitle(title, name string) string {
	title = strings.TrimSpace(title)
	if len(title) >= len(evaluationPrefix) && strings.EqualFold(title[:len(evaluationPrefix)], evaluationPrefix) {
		title = strings.TrimSpace(title[len(evaluationPrefix):])
	}
	for _, sep := range titleSeparators {
		left, right, ok := strings.Cut(title, sep)
		if !ok {
			continue
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		switch {
		case strings.EqualFold(left, name):
			return right
		case strings.EqualFold(right, name):
			return left
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("teamwork: marshal %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("teamwork: %s %s: %w", method, path, err)
	}
	req.SetBasicAuth(c.apiKey, "X")
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("teamwork: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "teamwork request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("teamwork: decode %s: %w", path, err)
	}
	return nil
}
