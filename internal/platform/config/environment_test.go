package config

import "testing"

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		raw  string
		want Environment
	}{
		{"", EnvironmentLocal},
		{"local", EnvironmentLocal},
		{" Production ", EnvironmentProduction},
		{"prod", EnvironmentProduction},
		{"dev", EnvironmentDevelopment},
		{"development", EnvironmentDevelopment},
	}
	for _, tc := range tests {
		got, err := ParseEnvironment(tc.raw)
		if err != nil {
			t.Fatalf("ParseEnvironment(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseEnvironment(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseEnvironmentRejectsUnknown(t *testing.T) {
	if _, err := ParseEnvironment("staging"); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	if !EnvironmentProduction.IsProduction() || EnvironmentProduction.IsLocal() {
		t.Fatal("production predicates wrong")
	}
	if !EnvironmentLocal.IsLocal() || EnvironmentLocal.IsProduction() {
		t.Fatal("local predicates wrong")
	}
	if EnvironmentDevelopment.IsLocal() || EnvironmentDevelopment.IsProduction() {
		t.Fatal("development predicates wrong")
	}
}
