package answers

import (
	"encoding/json"
	"testing"
)

func TestCloneIndependence(t *testing.T) {
	orig := Set{
		"mobility":   "walker",
		"conditions": []string{"diabetes", "chf"},
	}

	clone := orig.Clone()
	clone["mobility"] = "wheelchair"
	list, _ := clone.List("conditions")
	list[0] = "copd"

	if v, _ := orig.String("mobility"); v != "walker" {
		t.Errorf("mutating clone changed original scalar: got %q", v)
	}
	origList, _ := orig.List("conditions")
	if origList[0] != "diabetes" {
		t.Errorf("mutating clone changed original list: got %q", origList[0])
	}
}

func TestAccessorsAfterJSONRoundTrip(t *testing.T) {
	orig := Set{
		"age":        "85+",
		"conditions": []string{"diabetes", "chf", "copd"},
		"budget":     float64(4500),
		"veteran":    true,
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Set
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := decoded.String("age"); !ok || v != "85+" {
		t.Errorf("String(age) = %q, %v", v, ok)
	}
	if list, ok := decoded.List("conditions"); !ok || len(list) != 3 || list[2] != "copd" {
		t.Errorf("List(conditions) = %v, %v", list, ok)
	}
	if n, ok := decoded.Number("budget"); !ok || n != 4500 {
		t.Errorf("Number(budget) = %v, %v", n, ok)
	}
	if b, ok := decoded.Bool("veteran"); !ok || !b {
		t.Errorf("Bool(veteran) = %v, %v", b, ok)
	}
}

func TestHas(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		key  string
		want bool
	}{
		{"missing key", Set{}, "mobility", false},
		{"empty string", Set{"mobility": ""}, "mobility", false},
		{"answered scalar", Set{"mobility": "walker"}, "mobility", true},
		{"empty list", Set{"conditions": []string{}}, "conditions", false},
		{"answered list", Set{"conditions": []string{"chf"}}, "conditions", true},
		{"false bool is answered", Set{"veteran": false}, "veteran", true},
		{"nil value", Set{"notes": nil}, "notes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Has(tt.key); got != tt.want {
				t.Errorf("Has(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLen(t *testing.T) {
	set := Set{
		"mobility":   "walker",
		"conditions": []string{"diabetes", "chf", "copd"},
	}

	if got := set.Len("conditions"); got != 3 {
		t.Errorf("Len(conditions) = %d, want 3", got)
	}
	if got := set.Len("mobility"); got != 1 {
		t.Errorf("Len(mobility) = %d, want 1", got)
	}
	if got := set.Len("absent"); got != 0 {
		t.Errorf("Len(absent) = %d, want 0", got)
	}
}

func TestScalarPromotesToList(t *testing.T) {
	set := Set{"mobility": "walker"}
	list, ok := set.List("mobility")
	if !ok || len(list) != 1 || list[0] != "walker" {
		t.Errorf("List(mobility) = %v, %v; want one-element promotion", list, ok)
	}
}
