package diagfmt

import (
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"bibcheck/internal/diag"
	"bibcheck/internal/source"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool              `json:"tool"`
	Invocations       []sarifInvocation      `json:"invocations,omitempty"`
	AutomationDetails sarifAutomationDetails `json:"automationDetails"`
	Results           []sarifResult          `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version,omitempty"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string            `json:"id"`
	ShortDescription     sarifText         `json:"shortDescription"`
	DefaultConfiguration sarifRuleDefaults `json:"defaultConfiguration"`
	Properties           map[string]string `json:"properties,omitempty"`
}

type sarifRuleDefaults struct {
	Level string `json:"level"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifAutomationDetails struct {
	GUID string `json:"guid"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifText       `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	LogicalLocations []sarifLogical        `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn"`
	EndLine     uint32 `json:"endLine"`
	EndColumn   uint32 `json:"endColumn"`
	ByteOffset  uint32 `json:"byteOffset"`
	ByteLength  uint32 `json:"byteLength"`
}

type sarifLogical struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind"`
}

func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevError:
		return "error"
	case diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// Sarif форматирует диагностики в SARIF формат (v2.1.0).
// Every known code is listed as a rule so that results can refer to it by index.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	codes := diag.AllCodes()
	ruleIndex := make(map[diag.Code]int, len(codes))
	rules := make([]sarifRule, 0, len(codes))
	for i, c := range codes {
		ruleIndex[c] = i
		rule := sarifRule{
			ID:                   c.ID(),
			ShortDescription:     sarifText{Text: c.Title()},
			DefaultConfiguration: sarifRuleDefaults{Level: sarifLevel(c.Severity())},
		}
		if kind, ok := c.Fix(); ok {
			rule.Properties = map[string]string{"fix": kind.String()}
		}
		rules = append(rules, rule)
	}

	results := make([]sarifResult, 0, bag.Len())
	for _, m := range bag.Items() {
		idx, ok := ruleIndex[m.Code()]
		if !ok {
			idx = -1
		}
		res := sarifResult{
			RuleID:    m.Code().ID(),
			RuleIndex: idx,
			Level:     sarifLevel(m.Severity()),
			Message:   sarifText{Text: m.Text()},
		}
		if span, ok := m.Span(); ok && fs != nil && int(span.File) < fs.Len() {
			start, end := fs.Resolve(span)
			loc := sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifact{URI: artifactURI(fs.Get(span.File), fs)},
					Region: sarifRegion{
						StartLine:   start.Line,
						StartColumn: start.Col,
						EndLine:     end.Line,
						EndColumn:   end.Col,
						ByteOffset:  span.Start,
						ByteLength:  span.Len(),
					},
				},
			}
			if subject := subjectOf(m); subject != "" {
				loc.LogicalLocations = []sarifLogical{{Name: subject, Kind: "member"}}
			}
			res.Locations = []sarifLocation{loc}
		}
		results = append(results, res)
	}

	name := meta.ToolName
	if name == "" {
		name = "bibcheck"
	}
	log := sarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    name,
				Version: meta.ToolVersion,
				Rules:   rules,
			}},
			Invocations: []sarifInvocation{{
				Arguments:           meta.InvocationArgs,
				ExecutionSuccessful: true,
			}},
			AutomationDetails: sarifAutomationDetails{GUID: uuid.NewString()},
			Results:           results,
		}},
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(log)
}

// artifactURI is relative to the base dir when possible, else a file:// URI.
func artifactURI(f *source.File, fs *source.FileSet) string {
	rel := f.FormatPath("relative", fs.BaseDir())
	if !filepath.IsAbs(rel) && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	abs := f.FormatPath("absolute", "")
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
