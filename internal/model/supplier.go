package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SupplierSchemaVersion is written into every persisted supplier document.
// Bump when the Supplier shape changes incompatibly.
const SupplierSchemaVersion = 1

// Segment is the three-tier ESG rating derived from the disclosure score.
type Segment string

const (
	SegmentLow    Segment = "Low"
	SegmentMedium Segment = "Medium"
	SegmentHigh   Segment = "High"
)

// Rank orders segments for comparison: Low < Medium < High.
func (s Segment) Rank() int {
	switch s {
	case SegmentLow:
		return 0
	case SegmentMedium:
		return 1
	case SegmentHigh:
		return 2
	}
	return -1
}

// Source is an evidentiary citation backing a research finding.
type Source struct {
	KeyQuote string `json:"key_quote"`
	Link     string `json:"link"`
}

// DataSummary is the structured result of one scored research question.
// If Available is false the summary may be empty and sources are absent.
type DataSummary struct {
	Available bool     `json:"available"`
	Summary   string   `json:"summary"`
	Sources   []Source `json:"sources,omitempty"`
}

// AgentSupplierInfo is the result of the basic-info question: the agent's
// resolution of the company's canonical identity.
type AgentSupplierInfo struct {
	Name        string `json:"name"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
}

// ESGData aggregates the six scored disclosure checks for a supplier.
type ESGData struct {
	Scope1     DataSummary `json:"scope_1"`
	Scope2     DataSummary `json:"scope_2"`
	Scope3     DataSummary `json:"scope_3"`
	Ecovadis   DataSummary `json:"ecovadis"`
	ISO14001   DataSummary `json:"iso_14001"`
	ProductLCA DataSummary `json:"product_lca"`
	Segment    Segment     `json:"segment"`
	Updated    time.Time   `json:"updated"`
}

// ByKey returns the summary for a scored question key, and whether the key
// is one of the six scored checks.
func (e *ESGData) ByKey(key string) (DataSummary, bool) {
	switch key {
	case "scope_1":
		return e.Scope1, true
	case "scope_2":
		return e.Scope2, true
	case "scope_3":
		return e.Scope3, true
	case "ecovadis":
		return e.Ecovadis, true
	case "iso_14001":
		return e.ISO14001, true
	case "product_lca":
		return e.ProductLCA, true
	}
	return DataSummary{}, false
}

// SetByKey stores the summary under a scored question key.
func (e *ESGData) SetByKey(key string, d DataSummary) bool {
	switch key {
	case "scope_1":
		e.Scope1 = d
	case "scope_2":
		e.Scope2 = d
	case "scope_3":
		e.Scope3 = d
	case "ecovadis":
		e.Ecovadis = d
	case "iso_14001":
		e.ISO14001 = d
	case "product_lca":
		e.ProductLCA = d
	default:
		return false
	}
	return true
}

// Supplier is the durable enrichment result for one company, owned by an
// organization. Created once per successful enrichment run; re-running a
// company creates a new Supplier with a new ID.
type Supplier struct {
	SchemaVersion int     `json:"schema_version"`
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Website       string  `json:"website,omitempty"`
	Description   string  `json:"description,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	ESG           ESGData `json:"esg"`
}

// Validate rejects malformed supplier documents on read. Documents that
// fail validation are surfaced as errors, not best-effort parsed.
func (s *Supplier) Validate() error {
	if s.ID == "" {
		return eris.New("supplier: missing id")
	}
	if s.Name == "" {
		return eris.Errorf("supplier %s: missing name", s.ID)
	}
	if s.SchemaVersion > SupplierSchemaVersion {
		return eris.Errorf("supplier %s: schema version %d is newer than supported %d",
			s.ID, s.SchemaVersion, SupplierSchemaVersion)
	}
	if s.ESG.Segment.Rank() < 0 {
		return eris.Errorf("supplier %s: invalid segment %q", s.ID, s.ESG.Segment)
	}
	for _, key := range ScoredKeys {
		d, _ := s.ESG.ByKey(key)
		if d.Available && d.Summary == "" {
			return eris.Errorf("supplier %s: %s available but summary empty", s.ID, key)
		}
	}
	return nil
}

// ScoredKeys lists the six scored check keys in display order.
var ScoredKeys = []string{"scope_1", "scope_2", "scope_3", "ecovadis", "iso_14001", "product_lca"}

// KnownFields carries caller-provided company details that seed the
// basic-info question and survive into the supplier when the agent cannot
// resolve a field on its own.
type KnownFields struct {
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}
