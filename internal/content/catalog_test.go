package content

import (
	"strings"
	"testing"
	"time"
)

func TestCatalogOrder(t *testing.T) {
	want := []string{"vistip", "spot_highlight", "seizoenstip", "vangst_week", "fun_fact", "interactief", "gear_tip"}
	if len(Catalog) != len(want) {
		t.Fatalf("catalog has %d types, want %d", len(Catalog), len(want))
	}
	for i, key := range want {
		if Catalog[i].Key != key {
			t.Errorf("catalog[%d] = %s, want %s", i, Catalog[i].Key, key)
		}
	}
}

func TestTypeByKey(t *testing.T) {
	ct, ok := TypeByKey("seizoenstip")
	if !ok {
		t.Fatal("seizoenstip should exist")
	}
	if ct.Label != "Seizoenstip" {
		t.Errorf("label = %s", ct.Label)
	}

	if _, ok := TypeByKey("nope"); ok {
		t.Error("unknown key should not resolve")
	}
}

func TestSeasonLabel(t *testing.T) {
	cases := map[time.Month]string{
		time.January:   "winter",
		time.February:  "winter",
		time.March:     "lente",
		time.May:       "lente",
		time.June:      "zomer",
		time.August:    "zomer",
		time.September: "herfst",
		time.November:  "herfst",
		time.December:  "winter",
	}
	for month, want := range cases {
		if got := seasonLabel(month); got != want {
			t.Errorf("seasonLabel(%s) = %s, want %s", month, got, want)
		}
	}
}

func TestSystemPromptSeasonalContext(t *testing.T) {
	now := time.Date(2025, time.October, 10, 12, 0, 0, 0, time.UTC)
	prompt := SystemPrompt(now)

	if !strings.Contains(prompt, "Huidige maand: oktober") {
		t.Error("prompt should name the current month in Dutch")
	}
	if !strings.Contains(prompt, "Seizoen: herfst") {
		t.Error("prompt should name the season")
	}
	if !strings.Contains(prompt, monthContext[time.October]) {
		t.Error("prompt should include the month talking point")
	}
	if !strings.Contains(prompt, `"hook"`) {
		t.Error("prompt should demand the JSON contract")
	}
}

func TestUserPrompt(t *testing.T) {
	ct, _ := TypeByKey("vistip")

	got := UserPrompt(ct, "")
	if !strings.Contains(got, "Kies zelf een interessant onderwerp") {
		t.Errorf("autonomous prompt missing instruction: %s", got)
	}

	got = UserPrompt(ct, "feedervissen in de herfst")
	if !strings.Contains(got, "over: feedervissen in de herfst") {
		t.Errorf("custom prompt not embedded: %s", got)
	}
}
