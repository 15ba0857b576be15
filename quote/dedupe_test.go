package quote

import "testing"

func TestDedupe_CaseInsensitivePair(t *testing.T) {
	got := Dedupe([]Quote{
		{Text: "A", Author: "X"},
		{Text: "a", Author: "x"},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(got))
	}
	if got[0].Text != "A" || got[0].Author != "X" {
		t.Errorf("expected first occurrence to win, got %+v", got[0])
	}
}

func TestDedupe_PreservesOrderAndFields(t *testing.T) {
	got := Dedupe([]Quote{
		{Text: "one", Author: "A", Category: "First"},
		{Text: "two", Author: "B"},
		{Text: "ONE", Author: "a", Category: "Second"},
		{Text: "one", Author: "B"},
		{Text: "", Author: "C"},
	})

	want := []Quote{
		{Text: "one", Author: "A", Category: "First"},
		{Text: "two", Author: "B"},
		{Text: "one", Author: "B"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d quotes, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}
