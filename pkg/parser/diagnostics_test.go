package parser

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestDescribeKind(t *testing.T) {
	cases := map[string]string{
		"":                "token",
		":":               "':'",
		")":               "')'",
		"**=":             "'**='",
		"identifier":      "identifier",
		"expression_list": "expression list",
		" block ":         "block",
	}
	for kind, want := range cases {
		if got := describeKind(kind); got != want {
			t.Fatalf("describeKind(%q) = %q, want %q", kind, got, want)
		}
	}
}

func TestEarliestOnEmptyTree(t *testing.T) {
	if n := earliest(nil, (*sitter.Node).IsError); n != nil {
		t.Fatalf("earliest(nil) = %v, want nil", n)
	}
}
