package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSupplier() Supplier {
	return Supplier{
		SchemaVersion: SupplierSchemaVersion,
		ID:            "sup-1",
		Name:          "Acme Industrial",
		Website:       "https://acme.example",
		Description:   "Industrial fasteners",
		Notes:         "preferred vendor",
		ESG: ESGData{
			Scope1: DataSummary{Available: true, Summary: "reported 12kt CO2e scope 1", Sources: []Source{
				{KeyQuote: "our Scope 1 emissions totalled 12,000 tCO2e", Link: "https://acme.example/esg.pdf"},
			}},
			Scope2:     DataSummary{Available: true, Summary: "market-based scope 2 reported"},
			Scope3:     DataSummary{},
			Ecovadis:   DataSummary{},
			ISO14001:   DataSummary{Available: true, Summary: "certified since 2019"},
			ProductLCA: DataSummary{},
			Segment:    SegmentMedium,
			Updated:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestSupplier_RoundTrip(t *testing.T) {
	original := validSupplier()

	doc, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Supplier
	require.NoError(t, json.Unmarshal(doc, &decoded))
	assert.Equal(t, original, decoded)
}

func TestSupplier_Validate(t *testing.T) {
	s := validSupplier()
	assert.NoError(t, s.Validate())
}

func TestSupplier_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Supplier)
		want   string
	}{
		{"missing id", func(s *Supplier) { s.ID = "" }, "missing id"},
		{"missing name", func(s *Supplier) { s.Name = "" }, "missing name"},
		{"future schema", func(s *Supplier) { s.SchemaVersion = SupplierSchemaVersion + 1 }, "schema version"},
		{"bad segment", func(s *Supplier) { s.ESG.Segment = "Critical" }, "invalid segment"},
		{"available without summary", func(s *Supplier) {
			s.ESG.Scope1 = DataSummary{Available: true}
		}, "summary empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSupplier()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestESGData_ByKey(t *testing.T) {
	s := validSupplier()

	for _, key := range ScoredKeys {
		_, ok := s.ESG.ByKey(key)
		assert.True(t, ok, key)
	}
	_, ok := s.ESG.ByKey("basic_info")
	assert.False(t, ok)

	var esg ESGData
	assert.True(t, esg.SetByKey("ecovadis", DataSummary{Available: true, Summary: "gold medal"}))
	assert.False(t, esg.SetByKey("unknown", DataSummary{}))
	got, _ := esg.ByKey("ecovadis")
	assert.Equal(t, "gold medal", got.Summary)
}

func TestSegment_Rank(t *testing.T) {
	assert.Less(t, SegmentLow.Rank(), SegmentMedium.Rank())
	assert.Less(t, SegmentMedium.Rank(), SegmentHigh.Rank())
	assert.Equal(t, -1, Segment("bogus").Rank())
}
