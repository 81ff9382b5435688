package intake

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/termcheck/internal/batch"
	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/schema"
)

// File is the YAML request file layout.
type File struct {
	Defaults Defaults      `yaml:"defaults"`
	Names    []NameRequest `yaml:"names"`
}

// Defaults fill fields a name leaves empty.
type Defaults struct {
	Direction string `yaml:"direction"`
	Category  string `yaml:"category"`
	Project   string `yaml:"project"`
	Generate  bool   `yaml:"generate"`
}

// NameRequest is one entry of a request file.
type NameRequest struct {
	ID          string                `yaml:"id"`
	Source      string                `yaml:"source"`
	Candidate   string                `yaml:"candidate"`
	Direction   string                `yaml:"direction"`
	Category    string                `yaml:"category"`
	Tags        []schema.Tag          `yaml:"tags"`
	Project     string                `yaml:"project"`
	ConfirmedAt string                `yaml:"confirmed_at"`
	Rationale   string                `yaml:"rationale"`
	Generate    *bool                 `yaml:"generate"`
	Evidence    []schema.EvidenceItem `yaml:"evidence"`
	Reverse     *ReverseRequest       `yaml:"reverse"`
}

// ReverseRequest is the reverse pass of a bidirectional check. Its source
// defaults to the forward candidate.
type ReverseRequest struct {
	Source    string                `yaml:"source"`
	Candidate string                `yaml:"candidate"`
	Category  string                `yaml:"category"`
	Evidence  []schema.EvidenceItem `yaml:"evidence"`
}

// LoadRequests reads a YAML request file.
func LoadRequests(path string) ([]batch.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intake: read %s: %w", path, err)
	}
	reqs, err := ParseRequests(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("intake: %s: %w", path, err)
	}
	return reqs, nil
}

// ParseRequests decodes a YAML request file. Unknown fields are rejected.
// Direction and category default to the file defaults, then to what the
// classifier infers from the source text.
func ParseRequests(r io.Reader) ([]batch.Request, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("intake: decode: %w", err)
	}

	out := make([]batch.Request, 0, len(f.Names))
	for i, n := range f.Names {
		req, err := n.toRequest(f.Defaults)
		if err != nil {
			return nil, fmt.Errorf("intake: names[%d] %q: %w", i, n.Source, err)
		}
		if req.ID == "" {
			req.ID = strconv.Itoa(i + 1)
		}
		out = append(out, req)
	}
	return out, nil
}

func (n NameRequest) toRequest(d Defaults) (batch.Request, error) {
	dir, cat, err := Resolve(n.Source, firstNonEmpty(n.Direction, d.Direction), firstNonEmpty(n.Category, d.Category))
	if err != nil {
		return batch.Request{}, err
	}
	confirmed, err := ParseDate(n.ConfirmedAt)
	if err != nil {
		return batch.Request{}, err
	}
	generate := d.Generate
	if n.Generate != nil {
		generate = *n.Generate
	}

	req := batch.Request{
		ID: n.ID,
		Candidate: schema.NameCandidate{
			SourceText:         strings.TrimSpace(n.Source),
			Direction:          dir,
			Category:           cat,
			Notation:           strings.TrimSpace(n.Candidate),
			Evidence:           n.Evidence,
			Tags:               n.Tags,
			Project:            firstNonEmpty(n.Project, d.Project),
			ConfirmedAt:        confirmed,
			GeneratorRationale: n.Rationale,
		},
		Generate: generate,
	}
	if n.Reverse != nil {
		revCat := cat
		if n.Reverse.Category != "" {
			if revCat, err = schema.ParseCategory(n.Reverse.Category); err != nil {
				return batch.Request{}, err
			}
		}
		req.Reverse = &schema.NameCandidate{
			SourceText:  strings.TrimSpace(n.Reverse.Source),
			Direction:   dir.Reverse(),
			Category:    revCat,
			Notation:    strings.TrimSpace(n.Reverse.Candidate),
			Evidence:    n.Reverse.Evidence,
			Tags:        n.Tags,
			Project:     req.Candidate.Project,
			ConfirmedAt: confirmed,
		}
	}
	return req, nil
}

// FromEntries builds requests from a name list. Entries without a notation
// ask the generator for one.
func FromEntries(entries []Entry, d Defaults) ([]batch.Request, error) {
	out := make([]batch.Request, 0, len(entries))
	for i, e := range entries {
		dir, cat, err := Resolve(e.Source, d.Direction, d.Category)
		if err != nil {
			return nil, fmt.Errorf("intake: line %d %q: %w", e.Line, e.Source, err)
		}
		out = append(out, batch.Request{
			ID: strconv.Itoa(i + 1),
			Candidate: schema.NameCandidate{
				SourceText: e.Source,
				Direction:  dir,
				Category:   cat,
				Notation:   e.Notation,
				Project:    d.Project,
			},
			Generate: e.Notation == "" || d.Generate,
		})
	}
	return out, nil
}

// Resolve parses explicit direction and category values and infers the
// missing ones from source. A source the classifier rejects gets KO-EN and
// other, so the engine reports the classification error for that name.
func Resolve(source, dir, cat string) (schema.Direction, schema.Category, error) {
	var (
		d   schema.Direction
		c   schema.Category
		err error
	)
	if dir != "" {
		if d, err = schema.ParseDirection(dir); err != nil {
			return "", "", err
		}
	}
	if cat != "" {
		if c, err = schema.ParseCategory(cat); err != nil {
			return "", "", err
		}
	}
	if d != "" && c != "" {
		return d, c, nil
	}
	res, err := classify.Classify(source)
	if err != nil {
		res = classify.Result{Category: schema.CategoryOther}
	}
	if d == "" {
		d = res.Direction()
	}
	if c == "" {
		c = res.Category
	}
	return d, c, nil
}

// LoadEvidence reads a YAML list of evidence items.
func LoadEvidence(path string) ([]schema.EvidenceItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intake: read %s: %w", path, err)
	}
	var items []schema.EvidenceItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("intake: %s: %w", path, err)
	}
	return items, nil
}

// ParseDate accepts "2006-01-02" or RFC 3339. Empty input is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
