package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"users", "`users`"},
		{"select", "`select`"},
		{"first name", "`first name`"},
		{"user`data", "`user``data`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQuoteQualified(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fact_sales", "`fact_sales`"},
		{"retail_dw.fact_sales", "`retail_dw`.`fact_sales`"},
		{"`already`.`quoted`", "`already`.`quoted`"},
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := QuoteQualified(tt.input); got != tt.expected {
				t.Errorf("QuoteQualified(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPlainIdentifier(t *testing.T) {
	tests := map[string]bool{
		"sales":      true,
		"dim_date2":  true,
		"$tmp":       true,
		"2019_sales": false,
		"first name": false,
		"a.b":        false,
		"":           false,
	}
	for input, want := range tests {
		if got := IsPlainIdentifier(input); got != want {
			t.Errorf("IsPlainIdentifier(%q) = %v, want %v", input, got, want)
		}
	}
}
