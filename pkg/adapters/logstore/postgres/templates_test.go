package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

func TestRender_AllTemplatesHaveStatements(t *testing.T) {
	p := logstore.Params{
		Since:          time.Now().Add(-24 * time.Hour),
		Severities:     []string{"Medium", "High"},
		Limit:          20,
		IncidentNumber: 42,
		IncidentName:   "phishing",
		BinSize:        time.Hour,
	}

	for _, id := range queries.All() {
		t.Run(id, func(t *testing.T) {
			stmt, args, err := render(id, p)
			require.NoError(t, err)
			assert.NotEmpty(t, stmt)
			assert.NotEmpty(t, args)
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := render("no_such_template", logstore.Params{})
	require.Error(t, err)
}

func TestRender_ListIncidentsDeduplicates(t *testing.T) {
	stmt, args, err := render(queries.TemplateListIncidents, logstore.Params{
		Since:      time.Now(),
		Severities: []string{"High"},
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Contains(t, stmt, "DISTINCT ON (incident_number)")
	assert.Contains(t, stmt, "LIMIT $3")
	assert.Len(t, args, 3)
}

func TestRender_NoStringInterpolationOfParams(t *testing.T) {
	name := "phishing' OR '1'='1"
	// the screen rejects this outright
	_, _, err := render(queries.TemplateGetIncidentByName, logstore.Params{
		IncidentName: name,
		Limit:        5,
	})
	require.Error(t, err)

	// benign names bind as parameters, never appearing in the statement
	stmt, args, err := render(queries.TemplateGetIncidentByName, logstore.Params{
		IncidentName: "phishing campaign",
		Limit:        5,
	})
	require.NoError(t, err)
	assert.NotContains(t, stmt, "phishing campaign")
	assert.Equal(t, "phishing campaign", args[0])
}

func TestRender_TrendBindsBinSize(t *testing.T) {
	stmt, args, err := render(queries.TemplateAlertTrend, logstore.Params{
		Since:      time.Now(),
		Severities: []string{"Low", "Medium", "High"},
		BinSize:    time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(stmt, "date_bin"))
	assert.Equal(t, time.Hour, args[2])
}
