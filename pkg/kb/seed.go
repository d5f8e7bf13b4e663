package kb

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedIncident is one synthetic incident from a seed file. These form
// the baseline dataset before live Sentinel incidents are ingested.
type SeedIncident struct {
	ID              string `yaml:"id"`
	Title           string `yaml:"title"`
	Severity        string `yaml:"severity"`
	Status          string `yaml:"status"`
	Description     string `yaml:"description"`
	MitreTechniques string `yaml:"mitre_techniques"`
	Entities        string `yaml:"entities"`
	Source          string `yaml:"source"`
}

// SeedSection is one section of a playbook.
type SeedSection struct {
	Section string `yaml:"section"`
	Content string `yaml:"content"`
}

// SeedPlaybook is one investigation playbook from a seed file.
type SeedPlaybook struct {
	PlaybookID      string        `yaml:"playbook_id"`
	IncidentType    string        `yaml:"incident_type"`
	MitreTechniques string        `yaml:"mitre_techniques"`
	Sections        []SeedSection `yaml:"sections"`
}

// SeedFile is the YAML layout of a knowledge seed file.
type SeedFile struct {
	Incidents []SeedIncident `yaml:"incidents"`
	Playbooks []SeedPlaybook `yaml:"playbooks"`
}

// LoadSeedFile parses a knowledge seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// Document converts the incident into a natural-language document for
// embedding. Structured fields become readable text to maximize
// embedding quality.
func (i SeedIncident) Document(now time.Time) Document {
	orDefault := func(v string) string {
		if v == "" {
			return "Unknown"
		}
		return v
	}

	parts := []string{
		"Security Incident: " + orDefault(i.Title),
		"Severity: " + orDefault(i.Severity),
		"Status: " + orDefault(i.Status),
	}
	if i.Description != "" {
		parts = append(parts, "Description: "+i.Description)
	}
	if i.MitreTechniques != "" {
		parts = append(parts, "MITRE ATT&CK Techniques: "+i.MitreTechniques)
	}
	if i.Entities != "" {
		parts = append(parts, "Affected Entities: "+i.Entities)
	}

	source := i.Source
	if source == "" {
		source = "synthetic"
	}

	return Document{
		ID:       i.ID,
		Document: strings.Join(parts, "\n"),
		Metadata: map[string]string{
			// 0 for synthetic; real incidents carry the Sentinel number.
			"incident_number":  "0",
			"title":            i.Title,
			"severity":         orDefault(i.Severity),
			"status":           orDefault(i.Status),
			"source":           source,
			"mitre_techniques": i.MitreTechniques,
			"created_date":     now.UTC().Format("2006-01-02"),
		},
	}
}

// Chunks converts the playbook into one document per section. Each chunk
// is self-contained: the document text repeats the incident type so a
// section remains meaningful on its own.
func (p SeedPlaybook) Chunks() []Document {
	chunks := make([]Document, 0, len(p.Sections))
	for i, section := range p.Sections {
		chunks = append(chunks, Document{
			ID: fmt.Sprintf("%s-%s-%d", p.PlaybookID, section.Section, i),
			Document: fmt.Sprintf("Playbook: %s - %s\n\n%s",
				p.IncidentType, section.Section, section.Content),
			Metadata: map[string]string{
				"playbook_id":      p.PlaybookID,
				"incident_type":    p.IncidentType,
				"mitre_techniques": p.MitreTechniques,
				"section":          section.Section,
				"chunk_index":      strconv.Itoa(i),
				"source":           "hand-written",
			},
		})
	}
	return chunks
}

// Seed embeds and stores every document in the seed file. Returns the
// incident and playbook chunk counts upserted.
func (s *Store) Seed(ctx context.Context, seed *SeedFile) (int, int, error) {
	incidentDocs := make([]Document, 0, len(seed.Incidents))
	now := time.Now()
	for _, incident := range seed.Incidents {
		incidentDocs = append(incidentDocs, incident.Document(now))
	}

	var playbookDocs []Document
	for _, playbook := range seed.Playbooks {
		playbookDocs = append(playbookDocs, playbook.Chunks()...)
	}

	incidents, err := s.UpsertIncidents(ctx, incidentDocs)
	if err != nil {
		return 0, 0, err
	}
	playbooks, err := s.UpsertPlaybooks(ctx, playbookDocs)
	if err != nil {
		return incidents, 0, err
	}
	return incidents, playbooks, nil
}
