package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.June || d.Day() != 3 {
		t.Errorf("unexpected date %v", d)
	}
	if d.String() != "2024-06-03" {
		t.Errorf("expected 2024-06-03, got %q", d.String())
	}

	for _, bad := range []string{"", "2024-6-3", "03.06.2024", "2024-02-30"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q): expected error", bad)
		}
	}
}

func TestDateOfIgnoresClock(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2024, time.June, 3, 23, 59, 0, 0, loc)
	if got := DateOf(late); !got.Equal(NewDate(2024, time.June, 3)) {
		t.Errorf("DateOf(%v) = %v, want 2024-06-03", late, got)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("leap day: got %s", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("month rollover: got %s", got)
	}
	if got := d.DaysUntil(NewDate(2024, time.March, 5)); got != 6 {
		t.Errorf("DaysUntil: expected 6, got %d", got)
	}
	if got := d.DaysUntil(NewDate(2024, time.February, 25)); got != -3 {
		t.Errorf("DaysUntil backwards: expected -3, got %d", got)
	}
	if got := NewDate(2024, time.June, 1).DaysUntil(NewDate(9999, time.December, 31)); got != 2913021 {
		t.Errorf("DaysUntil far future: expected 2913021, got %d", got)
	}
	if got := NewDate(9999, time.December, 31).DaysUntil(NewDate(1, time.January, 1)); got != -3652058 {
		t.Errorf("DaysUntil far past: expected -3652058, got %d", got)
	}
	if !d.Before(d.AddDays(1)) || d.After(d) || !d.Equal(d.AddDays(0)) {
		t.Error("comparison helpers disagree")
	}
}

func TestDateScanAndValue(t *testing.T) {
	var d Date
	if err := d.Scan("2024-06-05"); err != nil {
		t.Fatalf("Scan string: %v", err)
	}
	v, err := d.Value()
	if err != nil || v != "2024-06-05" {
		t.Errorf("Value() = %v, %v", v, err)
	}

	if err := d.Scan([]byte("2024-06-06")); err != nil || d.String() != "2024-06-06" {
		t.Errorf("Scan bytes: %v %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-06-07" {
		t.Errorf("Scan time: %v %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestDateJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Start Date `json:"start"`
	}{NewDate(2024, time.June, 1)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"start":"2024-06-01"}` {
		t.Errorf("unexpected JSON %s", data)
	}

	var out struct {
		Start Date `json:"start"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !out.Start.Equal(NewDate(2024, time.June, 1)) {
		t.Errorf("round trip gave %v", out.Start)
	}
}
