package helpers_test

import (
	"testing"

	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/stretchr/testify/assert"
)

func TestPtr(t *testing.T) {
	testCases := []struct {
		Name  string
		Input any
	}{
		{
			Name:  "nil",
			Input: nil,
		},
		{
			Name:  "string",
			Input: "v",
		},
		{
			Name:  "int",
			Input: 1,
		},
		{
			Name:  "struct",
			Input: struct{ Name string }{Name: "v"},
		},
		{
			Name:  "nil_pointer",
			Input: (*string)(nil),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Input == nil {
				assert.Nil(t, helpers.Ptr(tc.Input))
			} else {
				assert.Equal(t, &tc.Input, helpers.Ptr(tc.Input))
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		Name     string
		Input    string
		Limit    int
		Expected string
	}{
		{
			Name:     "short",
			Input:    "Fix login bug",
			Limit:    32,
			Expected: "Fix login bug",
		},
		{
			Name:     "exact",
			Input:    "abcdef",
			Limit:    6,
			Expected: "abcdef",
		},
		{
			Name:     "long",
			Input:    "Users report 500 errors",
			Limit:    10,
			Expected: "Users r...",
		},
		{
			Name:     "tiny_limit",
			Input:    "abcdef",
			Limit:    2,
			Expected: "ab",
		},
		{
			Name:     "multibyte_boundary",
			Input:    "Zürich office",
			Limit:    5,
			Expected: "Z...",
		},
		{
			Name:     "multibyte_tiny_limit",
			Input:    "über",
			Limit:    1,
			Expected: "",
		},
		{
			Name:     "multibyte_kept_whole",
			Input:    "日本語のテキスト",
			Limit:    12,
			Expected: "日本語...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Expected, helpers.Truncate(tc.Input, tc.Limit))
		})
	}
}
