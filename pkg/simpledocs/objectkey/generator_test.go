package objectkey

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var allowedSegment = regexp.MustCompile(`^[A-Za-z0-9._-]*$`)

func TestKey(t *testing.T) {
	tests := []struct {
		name         string
		category     Category
		originalName string
		ts           int64
		expected     string
	}{
		{
			name:         "plain pdf",
			category:     PDF,
			originalName: "report.pdf",
			ts:           1700000000000,
			expected:     "pdf_files/1700000000000-report.pdf",
		},
		{
			name:         "excel sheet",
			category:     Excel,
			originalName: "Q3-budget_v2.xlsx",
			ts:           1700000000001,
			expected:     "excel_sheets/1700000000001-Q3-budget_v2.xlsx",
		},
		{
			name:         "unicode and punctuation replaced one to one",
			category:     PDF,
			originalName: "报告 (final)#1.pdf",
			ts:           1700000000000,
			expected:     "pdf_files/1700000000000-____final__1.pdf",
		},
		{
			name:         "path traversal flattened",
			category:     PDF,
			originalName: "../../etc/passwd",
			ts:           1,
			expected:     "pdf_files/1-.._.._etc_passwd",
		},
		{
			name:         "unknown category",
			category:     Category("word"),
			originalName: "a.docx",
			ts:           1,
			expected:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Key(tt.category, tt.originalName, tt.ts)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestTimestampGenerator(t *testing.T) {
	gen := NewTimestampGenerator()
	at := time.UnixMilli(1700000000000)

	key := gen.GenerateKey(PDF, "a b.pdf", at)
	if key != "pdf_files/1700000000000-a_b.pdf" {
		t.Errorf("unexpected key %s", key)
	}
	if !HasCategoryPrefix(key) {
		t.Errorf("generated key %s should carry a category prefix", key)
	}
}

func TestSanitize(t *testing.T) {
	inputs := []string{
		"simple.pdf",
		"with space.pdf",
		"报告 (final)#1.pdf",
		"a/b\\c:d*e?f\"g<h>i|j",
		"émoji-🙂.xlsx",
		"",
		"..",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := Sanitize(in)
			if !allowedSegment.MatchString(once) {
				t.Errorf("sanitized %q contains disallowed characters: %q", in, once)
			}
			if strings.Contains(once, "/") {
				t.Errorf("sanitized %q contains a separator", in)
			}
			if twice := Sanitize(once); twice != once {
				t.Errorf("sanitize is not idempotent: %q -> %q", once, twice)
			}
			if got, want := len([]rune(once)), len([]rune(in)); got != want {
				t.Errorf("expected %d runes, got %d", want, got)
			}
		})
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		key      string
		category Category
		ok       bool
	}{
		{"pdf_files/123-a.pdf", PDF, true},
		{"excel_sheets/123-a.xlsx", Excel, true},
		{"pdf_files", "", false},
		{"pdf_filesX/123-a.pdf", "", false},
		{"evil/../../secret", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c, ok := CategoryOf(tt.key)
			if ok != tt.ok || c != tt.category {
				t.Errorf("CategoryOf(%q) = %q, %v; want %q, %v", tt.key, c, ok, tt.category, tt.ok)
			}
			if HasCategoryPrefix(tt.key) != tt.ok {
				t.Errorf("HasCategoryPrefix(%q) mismatch", tt.key)
			}
		})
	}
}

func TestCustomFuncGenerator(t *testing.T) {
	gen := NewCustomFuncGenerator(func(category Category, originalName string, at time.Time) string {
		p, _ := Prefix(category)
		return p + "/fixed-" + Sanitize(originalName)
	})

	key := gen.GenerateKey(Excel, "x y.csv", time.Now())
	if key != "excel_sheets/fixed-x_y.csv" {
		t.Errorf("unexpected key %s", key)
	}
}
