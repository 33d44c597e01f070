package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	weight := func(v float64) *float64 { return &v }
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
	}{
		{"empty query", &SearchQuery{Query: ""}, true},
		{"valid query", &SearchQuery{Query: "hello"}, false},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, false},
		{"caps limit at 100", &SearchQuery{Query: "x", Limit: 200}, false},
		{"negative offset reset", &SearchQuery{Query: "x", Offset: -4}, false},
		{"weight in range", &SearchQuery{Query: "x", PopularityWeight: weight(0.4)}, false},
		{"weight above one", &SearchQuery{Query: "x", PopularityWeight: weight(1.5)}, true},
		{"negative weight", &SearchQuery{Query: "x", PopularityWeight: weight(-0.1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if tt.query.Limit == 0 {
					t.Error("expected default limit to be set")
				}
				if tt.query.Limit > 100 {
					t.Errorf("expected limit capped at 100, got %d", tt.query.Limit)
				}
				if tt.query.Offset < 0 {
					t.Errorf("expected offset >= 0, got %d", tt.query.Offset)
				}
			}
		})
	}
}
