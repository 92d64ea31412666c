package anchors

import (
	"reflect"
	"testing"
)

func TestQualityReasons(t *testing.T) {
	tests := []struct {
		anchor string
		want   string
	}{
		{"grip", ReasonTooFewWords},
		{"a b", ReasonTooShort},
		{"golf swing", ReasonGeneric},
		{"  Golf Swing ", ReasonGeneric},
		{"Tiger Woods", ReasonProperNounly},
		{"Augusta National Golf", ""},
		{"grip pressure", ""},
		{"fixing a slice", ""},
		{"9 Iron Distances", ""},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			if got := NewFilter().Reason(tt.anchor); got != tt.want {
				t.Errorf("Reason(%q) = %q, want %q", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestFilterExtraGenericPhrases(t *testing.T) {
	f := NewFilter("Putting Drills")
	if f.IsQuality("putting drills") {
		t.Error("Expected configured generic phrase to be rejected")
	}
	if !IsQuality("putting drills") {
		t.Error("Default filter must not know about extra phrases")
	}
}

func TestFilterQualityKeepsOrder(t *testing.T) {
	in := []string{"wrist angle at impact", "golf tips", "tempo", "release timing"}
	got := FilterQuality(in)
	want := []string{"wrist angle at impact", "release timing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestExtractPatterns(t *testing.T) {
	got := ExtractPatterns("How to Fix Your Slice: The Complete Guide to Grip Pressure")
	want := []string{
		"fix slice grip",
		"fix slice",
		"slice grip",
		"grip pressure",
		"slice",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestExtractPatternsShortTitles(t *testing.T) {
	if got := ExtractPatterns("The Best Tips"); len(got) != 0 {
		t.Errorf("Expected no patterns from stop words, got %v", got)
	}
	got := ExtractPatterns("Chipping")
	if !reflect.DeepEqual(got, []string{"chipping"}) {
		t.Errorf("Expected single word pattern, got %v", got)
	}
}

func TestExtractPatternsCapped(t *testing.T) {
	got := ExtractPatterns("putting chipping pitching driving bunker recovery")
	if len(got) != 5 {
		t.Errorf("Expected 5 patterns, got %d: %v", len(got), got)
	}
}

func TestWordsAndKeyword(t *testing.T) {
	if got := Words("Café's  swing/plane!"); !reflect.DeepEqual(got, []string{"café", "s", "swing", "plane"}) {
		t.Errorf("Unexpected words %v", got)
	}
	if got := FirstKeyword("How to fix a slice"); got != "fix" {
		t.Errorf("Expected fix, got %q", got)
	}
	if got := FirstKeyword("Slicing: How to Stop It"); got != "slicing" {
		t.Errorf("Expected punctuation stripped, got %q", got)
	}
	if got := FirstKeyword("to an"); got != "to" {
		t.Errorf("Expected fallback to first word, got %q", got)
	}
	if got := FirstKeyword(""); got != "" {
		t.Errorf("Expected empty keyword, got %q", got)
	}
}
