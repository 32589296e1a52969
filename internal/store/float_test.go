package store

import (
	"encoding/json"
	"math"
	"testing"
)

func TestJSONFloat_Marshal(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"finite", 0.5, `0.5`},
		{"zero", 0, `0`},
		{"nan", math.NaN(), `"NaN"`},
		{"positive infinity", math.Inf(1), `"+Inf"`},
		{"negative infinity", math.Inf(-1), `"-Inf"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(jsonFloat(tt.value))
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, data)
			}
		})
	}
}

func TestJSONFloat_Unmarshal(t *testing.T) {
	tests := []struct {
		input string
		check func(float64) bool
	}{
		{`1.25`, func(v float64) bool { return v == 1.25 }},
		{`"NaN"`, math.IsNaN},
		{`"+Inf"`, func(v float64) bool { return math.IsInf(v, 1) }},
		{`"Inf"`, func(v float64) bool { return math.IsInf(v, 1) }},
		{`"-Inf"`, func(v float64) bool { return math.IsInf(v, -1) }},
		{`null`, func(v float64) bool { return v == 0 }},
	}

	for _, tt := range tests {
		var f jsonFloat
		if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", tt.input, err)
			continue
		}
		if !tt.check(float64(f)) {
			t.Errorf("Unmarshal(%s) gave %v", tt.input, float64(f))
		}
	}

	var f jsonFloat
	if err := json.Unmarshal([]byte(`"large"`), &f); err == nil {
		t.Error("Expected error for a non-numeric string")
	}
}
