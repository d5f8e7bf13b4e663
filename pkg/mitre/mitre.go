// Package mitre fetches the enterprise ATT&CK dataset and filters it to
// the curated subset of techniques most relevant to Sentinel detections.
package mitre

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Technique is one ATT&CK technique in the curated subset.
type Technique struct {
	TechniqueID string   `json:"technique_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tactics     []string `json:"tactics"`
}

// CuratedTechniqueIDs is the subset of enterprise techniques retained
// after filtering, chosen for relevance to common SOC detections.
var CuratedTechniqueIDs = map[string]bool{
	// Initial Access
	"T1566": true, // Phishing
	"T1078": true, // Valid Accounts
	"T1190": true, // Exploit Public-Facing Application
	// Execution
	"T1059": true, // Command and Scripting Interpreter
	"T1204": true, // User Execution
	// Persistence
	"T1136": true, // Create Account
	"T1053": true, // Scheduled Task/Job
	"T1098": true, // Account Manipulation
	// Privilege Escalation
	"T1548": true, // Abuse Elevation Control Mechanism
	"T1134": true, // Access Token Manipulation
	// Defense Evasion
	"T1562": true, // Impair Defenses
	"T1070": true, // Indicator Removal
	// Credential Access
	"T1110": true, // Brute Force
	"T1003": true, // OS Credential Dumping
	"T1558": true, // Steal or Forge Kerberos Tickets
	// Lateral Movement
	"T1021": true, // Remote Services
	"T1570": true, // Lateral Tool Transfer
	// Collection / Exfiltration
	"T1005": true, // Data from Local System
	"T1567": true, // Exfiltration Over Web Service
	"T1041": true, // Exfiltration Over C2 Channel
	// Discovery
	"T1087": true, // Account Discovery
	"T1069": true, // Permission Groups Discovery
	// Impact
	"T1486": true, // Data Encrypted for Impact
	"T1489": true, // Service Stop
	// Command and Control
	"T1071": true, // Application Layer Protocol
}

const (
	attackURL = "https://raw.githubusercontent.com/mitre-attack/attack-stix-data" +
		"/master/enterprise-attack/enterprise-attack.json"
	cacheFilename = "enterprise-attack.json"
	cacheTTL      = 24 * time.Hour
	fetchTimeout  = 60 * time.Second
)

// Fetcher downloads and caches the ATT&CK STIX bundle. A zero CacheDir
// disables the on-disk cache.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	logger   *zap.Logger
	url      string
}

// FetcherConfig holds dependencies for creating a Fetcher.
type FetcherConfig struct {
	CacheDir string
	Client   *http.Client
	Logger   *zap.Logger
}

// NewFetcher creates a Fetcher. Client defaults to an http.Client with
// the standard fetch timeout.
func NewFetcher(cfg *FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		cacheDir: cfg.CacheDir,
		client:   client,
		logger:   cfg.Logger.Named("mitre"),
		url:      attackURL,
	}
}

// FetchTechniques returns the curated technique subset. On any failure
// (network, parse) it logs a warning and returns an empty list so the
// caller degrades instead of failing.
func (f *Fetcher) FetchTechniques(ctx context.Context) []Technique {
	raw, err := f.loadBundle(ctx)
	if err != nil {
		f.logger.Warn("Failed to fetch ATT&CK techniques, returning empty list",
			zap.Error(err))
		return []Technique{}
	}

	techniques, err := parseTechniques(raw)
	if err != nil {
		f.logger.Warn("Failed to parse ATT&CK bundle, returning empty list",
			zap.Error(err))
		return []Technique{}
	}
	return techniques
}

// Lookup returns techniques matching the given IDs, preserving input
// order and skipping unknown IDs.
func (f *Fetcher) Lookup(ctx context.Context, ids []string) []Technique {
	all := f.FetchTechniques(ctx)
	byID := make(map[string]Technique, len(all))
	for _, t := range all {
		byID[t.TechniqueID] = t
	}

	out := make([]Technique, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (f *Fetcher) loadBundle(ctx context.Context) ([]byte, error) {
	if f.cacheDir != "" {
		cachePath := filepath.Join(f.cacheDir, cacheFilename)
		if info, err := os.Stat(cachePath); err == nil {
			if time.Since(info.ModTime()) < cacheTTL {
				f.logger.Info("Loading ATT&CK data from cache",
					zap.String("path", cachePath))
				return os.ReadFile(cachePath)
			}
		}
	}

	f.logger.Info("Downloading ATT&CK data", zap.String("url", f.url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build ATT&CK request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download ATT&CK data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download ATT&CK data: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ATT&CK response: %w", err)
	}

	if f.cacheDir != "" {
		cachePath := filepath.Join(f.cacheDir, cacheFilename)
		if err := os.MkdirAll(f.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cachePath, raw, 0o644); err != nil {
				f.logger.Warn("Failed to write ATT&CK cache", zap.Error(err))
			} else {
				f.logger.Info("Cached ATT&CK data", zap.String("path", cachePath))
			}
		}
	}

	return raw, nil
}

// stixBundle covers the slice of the STIX wire format we read. Unknown
// fields are ignored by the decoder.
type stixBundle struct {
	Objects []stixObject `json:"objects"`
}

type stixObject struct {
	Type               string          `json:"type"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	IsSubtechnique     bool            `json:"x_mitre_is_subtechnique"`
	Revoked            bool            `json:"revoked"`
	ExternalReferences []stixReference `json:"external_references"`
	KillChainPhases    []stixPhase     `json:"kill_chain_phases"`
}

type stixReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
}

type stixPhase struct {
	PhaseName string `json:"phase_name"`
}

func parseTechniques(raw []byte) ([]Technique, error) {
	var bundle stixBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("decode STIX bundle: %w", err)
	}

	result := make([]Technique, 0, len(CuratedTechniqueIDs))
	for _, obj := range bundle.Objects {
		if obj.Type != "attack-pattern" || obj.IsSubtechnique || obj.Revoked {
			continue
		}

		var attackID string
		for _, ref := range obj.ExternalReferences {
			if ref.SourceName == "mitre-attack" {
				attackID = ref.ExternalID
				break
			}
		}
		if attackID == "" || !CuratedTechniqueIDs[attackID] {
			continue
		}

		tactics := make([]string, 0, len(obj.KillChainPhases))
		for _, phase := range obj.KillChainPhases {
			tactics = append(tactics, phase.PhaseName)
		}

		result = append(result, Technique{
			TechniqueID: attackID,
			Name:        obj.Name,
			Description: obj.Description,
			Tactics:     tactics,
		})
	}

	return result, nil
}
