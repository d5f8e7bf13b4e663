package kb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
)

const sampleSeed = `
incidents:
  - id: synthetic-001
    title: Phishing email with malicious attachment detected
    severity: High
    status: Closed
    description: A phishing email containing a weaponized macro was delivered.
    mitre_techniques: "T1566,T1204"
    entities: "user: jsmith@contoso.com, host: WS-FIN01"
  - id: synthetic-002
    title: Brute force against VPN gateway
    severity: Medium
    status: Active
    mitre_techniques: "T1110"

playbooks:
  - playbook_id: phishing-01
    incident_type: Phishing
    mitre_techniques: "T1566,T1204,T1534"
    sections:
      - section: investigation
        content: Identify all recipients who received the phishing email.
      - section: containment
        content: Block the sender address and malicious URLs at the gateway.
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSeed), 0o644))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	seed, err := LoadSeedFile(writeSeed(t))
	require.NoError(t, err)

	require.Len(t, seed.Incidents, 2)
	assert.Equal(t, "synthetic-001", seed.Incidents[0].ID)
	assert.Equal(t, "T1110", seed.Incidents[1].MitreTechniques)

	require.Len(t, seed.Playbooks, 1)
	assert.Len(t, seed.Playbooks[0].Sections, 2)
}

func TestLoadSeedFile_Missing(t *testing.T) {
	_, err := LoadSeedFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSeedIncident_Document(t *testing.T) {
	seed, err := LoadSeedFile(writeSeed(t))
	require.NoError(t, err)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	doc := seed.Incidents[0].Document(now)

	assert.Equal(t, "synthetic-001", doc.ID)
	assert.Contains(t, doc.Document, "Security Incident: Phishing email with malicious attachment detected")
	assert.Contains(t, doc.Document, "Severity: High")
	assert.Contains(t, doc.Document, "MITRE ATT&CK Techniques: T1566,T1204")
	assert.Contains(t, doc.Document, "Affected Entities: user: jsmith@contoso.com")

	assert.Equal(t, "0", doc.Metadata["incident_number"])
	assert.Equal(t, "synthetic", doc.Metadata["source"])
	assert.Equal(t, "2026-08-28", doc.Metadata["created_date"])

	// Absent optional fields are omitted from the document text.
	sparse := seed.Incidents[1].Document(now)
	assert.NotContains(t, sparse.Document, "Description:")
	assert.NotContains(t, sparse.Document, "Affected Entities:")
}

func TestSeedPlaybook_Chunks(t *testing.T) {
	seed, err := LoadSeedFile(writeSeed(t))
	require.NoError(t, err)

	chunks := seed.Playbooks[0].Chunks()
	require.Len(t, chunks, 2)

	assert.Equal(t, "phishing-01-investigation-0", chunks[0].ID)
	assert.Contains(t, chunks[0].Document, "Playbook: Phishing - investigation")
	assert.Equal(t, "0", chunks[0].Metadata["chunk_index"])
	assert.Equal(t, "T1566,T1204,T1534", chunks[0].Metadata["mitre_techniques"])

	assert.Equal(t, "phishing-01-containment-1", chunks[1].ID)
	assert.Equal(t, "hand-written", chunks[1].Metadata["source"])
}

func TestFormatResult_ConfidenceBuckets(t *testing.T) {
	result := formatResult(models.SearchTypePlaybooks, []hit{
		{document: "close match", distance: 0.20},
		{document: "weak match", distance: 0.60},
	})

	require.Len(t, result.Results, 2)
	assert.Equal(t, models.ConfidenceNormal, result.Results[0].Confidence)
	assert.Equal(t, models.ConfidenceLow, result.Results[1].Confidence)
	assert.False(t, result.LowConfidenceWarning)
	assert.Equal(t, 2, result.Total)
}

func TestFormatResult_WarningOnlyWhenAllLow(t *testing.T) {
	result := formatResult(models.SearchTypeSimilarIncidents, []hit{
		{document: "weak", distance: 0.50},
		{document: "weaker", distance: 0.90},
	})
	assert.True(t, result.LowConfidenceWarning)

	empty := formatResult(models.SearchTypeSimilarIncidents, nil)
	assert.False(t, empty.LowConfidenceWarning)
	assert.Empty(t, empty.Results)
}
