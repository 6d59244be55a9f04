package models

import "time"

// DefaultLabel is used for history entries that were not given a company or target name
const DefaultLabel = "General"

// SectionName identifies a narrative section of an analysis.
// Valid names come from the grammar version that produced the result.
type SectionName string

// Document is an uploaded resume and the text derived from it
type Document struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
	Text string `json:"text"`
}

// AnalysisRequest holds the inputs of one prompt build
type AnalysisRequest struct {
	ResumeText      string `json:"resume_text"`
	JobDescription  string `json:"job_description"`
	TemplateVersion string `json:"template_version"`
}

// AnalysisResult is the structured decomposition of one model answer
type AnalysisResult struct {
	Score           int                    `json:"score"` // 0-100
	Sections        map[SectionName]string `json:"sections"`
	TopSkills       []string               `json:"top_skills"`
	MissingSkills   []string               `json:"missing_skills"`
	Narrative       string                 `json:"narrative"`
	RawText         string                 `json:"raw_text"`
	ParseDegraded   bool                   `json:"parse_degraded"`
	Warnings        []string               `json:"warnings,omitempty"`
	TemplateVersion string                 `json:"template_version"`
}

// Clone returns a deep copy so callers cannot mutate shared maps or slices
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	if r.Sections != nil {
		out.Sections = make(map[SectionName]string, len(r.Sections))
		for k, v := range r.Sections {
			out.Sections[k] = v
		}
	}
	out.TopSkills = cloneStrings(r.TopSkills)
	out.MissingSkills = cloneStrings(r.MissingSkills)
	out.Warnings = cloneStrings(r.Warnings)
	return out
}

// HistoryEntry is one analysis recorded in a session ledger
type HistoryEntry struct {
	Ordinal   int            `json:"ordinal"`
	Label     string         `json:"label"`
	Timestamp time.Time      `json:"timestamp"`
	Score     int            `json:"score"`
	Result    AnalysisResult `json:"result"`
}

// Band returns the qualitative band of the entry score
func (e HistoryEntry) Band() Band {
	return BandFor(e.Score)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
