package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with special characters",
			input:    "Hello, World!",
			expected: "hello-world",
		},
		{
			name:     "with numbers",
			input:    "Top 15 Things to do When You are Bored",
			expected: "top-15-things-to-do-when-you-are-bored",
		},
		{
			name:     "with accents",
			input:    "Café résumé",
			expected: "cafe-resume",
		},
		{
			name:     "with multiple spaces",
			input:    "Hello   World",
			expected: "hello-world",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  Hello World  ",
			expected: "hello-world",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.input); got != tt.expected {
				t.Errorf("Slugify(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	valid := []string{"hello", "hello-world", "page-123", "a"}
	invalid := []string{"", "Hello", "hello world", "hello_world", "-hello", "hello-", "héllo"}

	for _, s := range valid {
		if !IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = false; want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidSlug(s) {
			t.Errorf("IsValidSlug(%q) = true; want false", s)
		}
	}
}
