package pattern

import "testing"

func TestMatchAssociationRootedDoubleStar(t *testing.T) {
	if !MatchAssociation([]string{"**/*.person.json"}, "file:///a/b/bob.person.json") {
		t.Fatal("expected rooted double-star glob to match a nested path")
	}
}

func TestMatchAssociationUnrootedGlobMatchesAnyDepth(t *testing.T) {
	if !MatchAssociation([]string{"*.config.json"}, "file:///a/b/app.config.json") {
		t.Fatal("expected an unrooted glob to be treated as **/<glob> per spec.md §4.3")
	}
}

func TestMatchAssociationAntiPatternWins(t *testing.T) {
	patterns := []string{"**/*.json", "!**/*.generated.json"}
	if MatchAssociation(patterns, "file:///a/out.generated.json") {
		t.Fatal("expected the anti-pattern to reject a match the positive pattern made")
	}
	if !MatchAssociation(patterns, "file:///a/config.json") {
		t.Fatal("expected the positive pattern to still match a non-excluded path")
	}
}

func TestMatchAssociationBracketClass(t *testing.T) {
	if !MatchAssociation([]string{"**/file[0-9].json"}, "file:///a/file3.json") {
		t.Fatal("expected a bracket class to match like a shell glob")
	}
	if MatchAssociation([]string{"**/file[0-9].json"}, "file:///a/fileX.json") {
		t.Fatal("expected a bracket class to reject a non-matching character")
	}
}

func TestMatchAssociationNegatedBracketClass(t *testing.T) {
	if MatchAssociation([]string{"**/file[!0-9].json"}, "file:///a/file3.json") {
		t.Fatal("expected a negated bracket class to reject a digit")
	}
	if !MatchAssociation([]string{"**/file[!0-9].json"}, "file:///a/fileX.json") {
		t.Fatal("expected a negated bracket class to match a non-digit")
	}
}

func TestMatchAssociationNoMatch(t *testing.T) {
	if MatchAssociation([]string{"**/*.yaml"}, "file:///a/config.json") {
		t.Fatal("expected an unrelated extension not to match")
	}
}
