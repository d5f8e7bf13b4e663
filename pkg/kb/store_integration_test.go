package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/testhelpers"
)

// basisEmbedder maps each known text to a fixed unit basis vector, so
// cosine distance between two texts is 0 when equal and 1 when distinct.
func basisEmbedder(known map[string]int) *llm.MockEmbedder {
	return &llm.MockEmbedder{
		CreateEmbeddingFunc: func(ctx context.Context, input string, model string) ([]float32, error) {
			vec := make([]float32, llm.EmbeddingDimensions)
			axis, ok := known[input]
			if !ok {
				axis = len(known) + 1
			}
			vec[axis] = 1
			return vec, nil
		},
	}
}

func newIntegrationStore(t *testing.T, embedder llm.Embedder) *Store {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	testDB.TruncateSecurityTables(t)

	return NewStore(&StoreConfig{
		Pool:     testDB.Pool,
		Embedder: embedder,
		Logger:   zap.NewNop(),
	})
}

func TestIntegration_UpsertAndSearch(t *testing.T) {
	phishingDoc := "Security Incident: Phishing campaign\nSeverity: High\nStatus: Closed"
	malwareDoc := "Security Incident: Malware outbreak\nSeverity: Medium\nStatus: Closed"
	store := newIntegrationStore(t, basisEmbedder(map[string]int{
		phishingDoc:         0,
		malwareDoc:          1,
		"phishing campaign": 0, // query lands on the phishing axis
	}))
	ctx := context.Background()

	n, err := store.UpsertIncidents(ctx, []Document{
		{ID: "inc-1", Document: phishingDoc, Metadata: map[string]string{"severity": "High"}},
		{ID: "inc-2", Document: malwareDoc, Metadata: map[string]string{"severity": "Medium"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	result, err := store.SearchSimilarIncidents(ctx, "phishing campaign", 2)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.Equal(t, phishingDoc, result.Results[0].Document)
	assert.Equal(t, "normal", result.Results[0].Confidence)
	assert.Equal(t, "High", result.Results[0].Metadata["severity"])
	// The orthogonal document sits at distance 1, past the threshold.
	assert.Equal(t, "low", result.Results[1].Confidence)
	assert.False(t, result.LowConfidenceWarning, "a normal hit suppresses the warning")
}

func TestIntegration_AllDistantHitsWarn(t *testing.T) {
	doc := "Security Incident: DNS tunneling\nSeverity: Low\nStatus: Closed"
	store := newIntegrationStore(t, basisEmbedder(map[string]int{doc: 0}))
	ctx := context.Background()

	_, err := store.UpsertIncidents(ctx, []Document{{ID: "inc-9", Document: doc}})
	require.NoError(t, err)

	// Unknown query text embeds on an unused axis.
	result, err := store.SearchSimilarIncidents(ctx, "completely unrelated topic", 3)
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.True(t, result.LowConfidenceWarning)
}

func TestIntegration_UpsertIsIdempotentPerID(t *testing.T) {
	docV1 := "Playbook: Phishing - investigation\n\nold text"
	docV2 := "Playbook: Phishing - investigation\n\nnew text"
	store := newIntegrationStore(t, basisEmbedder(map[string]int{
		docV1: 0,
		docV2: 0,
		"how to investigate phishing": 0,
	}))
	ctx := context.Background()

	_, err := store.UpsertPlaybooks(ctx, []Document{{ID: "pb-1", Document: docV1}})
	require.NoError(t, err)
	_, err = store.UpsertPlaybooks(ctx, []Document{{ID: "pb-1", Document: docV2}})
	require.NoError(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[CollectionPlaybooks])
	assert.Equal(t, 0, counts[CollectionIncidents])

	result, err := store.SearchPlaybooks(ctx, "how to investigate phishing", 3)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, docV2, result.Results[0].Document)
}

func TestIntegration_CollectionsAreIsolated(t *testing.T) {
	incidentDoc := "Security Incident: Credential stuffing\nSeverity: High\nStatus: Closed"
	playbookDoc := "Playbook: Brute Force - containment\n\nreset passwords"
	store := newIntegrationStore(t, basisEmbedder(map[string]int{
		incidentDoc: 0,
		playbookDoc: 1,
		"credential attacks": 0,
	}))
	ctx := context.Background()

	_, err := store.UpsertIncidents(ctx, []Document{{ID: "x", Document: incidentDoc}})
	require.NoError(t, err)
	_, err = store.UpsertPlaybooks(ctx, []Document{{ID: "x", Document: playbookDoc}})
	require.NoError(t, err)

	result, err := store.SearchSimilarIncidents(ctx, "credential attacks", 10)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, incidentDoc, result.Results[0].Document)
}
