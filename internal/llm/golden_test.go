package llm

import (
	"context"
	"testing"

	"github.com/dshills/termcheck/internal/schema"
)

// Canned provider answers in the shapes models actually return.
const (
	fencedPersonResponse = "```json\n{\"notation\":\"Bong Joon-ho\",\"rationale\":\"KOFIC KoBiz lists Bong Joon-ho.\"}\n```"
	escapedOtherResponse = `{"notation":"Haneul","rationale":"RR \h spelling of 하늘"}`
	hangulPersonResponse = `{"notation":"티모시 샬라메","rationale":"NIKL loanword rules; interview pronunciation."}`
	truncatedFence       = "```json\n{\"notation\":\"데어데블\",\"rationale\":\"termbase\"}"
)

func newSingleResponseFactory(response string) func(string, string) (Provider, error) {
	return func(_, _ string) (Provider, error) {
		return &singleResponseProvider{response: response}, nil
	}
}

type singleResponseProvider struct {
	response string
}

func (p *singleResponseProvider) Complete(ctx context.Context, system, user string, maxTokens int, temp float64) (string, error) {
	return p.response, nil
}

func runGolden(t *testing.T, req Request, response string) *Candidate {
	t.Helper()
	orig := NewProvider
	NewProvider = newSingleResponseFactory(response)
	t.Cleanup(func() { NewProvider = orig })

	cand, err := Generate(context.Background(), req, Options{MaxTokens: 512, Temperature: 0.2, Model: "mock"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	return cand
}

func TestGolden_FencedPerson(t *testing.T) {
	cand := runGolden(t, Request{Source: "봉준호", Direction: schema.KoToEn, Category: schema.CategoryRealPerson}, fencedPersonResponse)
	if cand.Notation != "Bong Joon-ho" {
		t.Errorf("Notation = %q, want %q", cand.Notation, "Bong Joon-ho")
	}
}

func TestGolden_InvalidEscape(t *testing.T) {
	cand := runGolden(t, Request{Source: "하늘", Direction: schema.KoToEn, Category: schema.CategoryOther}, escapedOtherResponse)
	if cand.Notation != "Haneul" {
		t.Errorf("Notation = %q, want %q", cand.Notation, "Haneul")
	}
	if cand.Rationale != `RR \h spelling of 하늘` {
		t.Errorf("Rationale = %q", cand.Rationale)
	}
}

func TestGolden_HangulPerson(t *testing.T) {
	cand := runGolden(t, Request{Source: "Timothée Chalamet", Direction: schema.EnToKo, Category: schema.CategoryRealPerson}, hangulPersonResponse)
	if cand.Notation != "티모시 샬라메" {
		t.Errorf("Notation = %q, want %q", cand.Notation, "티모시 샬라메")
	}
}

func TestGolden_TruncatedFence(t *testing.T) {
	cand := runGolden(t, Request{Source: "Daredevil", Direction: schema.EnToKo, Category: schema.CategoryOther}, truncatedFence)
	if cand.Notation != "데어데블" {
		t.Errorf("Notation = %q, want %q", cand.Notation, "데어데블")
	}
}
