package task

import "testing"

func TestCatalog_MembershipAndOrder(t *testing.T) {
	c := NewCatalog(
		[]Name{"calculator", "validator"},
		[]Name{"math_assistant"},
		[]Name{"local", "remote"},
	)

	if !c.HasUtility("calculator") || !c.HasUtility("validator") {
		t.Fatalf("expected declared utilities to be members")
	}
	if c.HasUtility("math_assistant") {
		t.Error("application name must not be a utility member")
	}
	if !c.HasApplication("math_assistant") {
		t.Error("expected declared application to be a member")
	}
	if !c.HasTarget("local") || c.HasTarget("cloud") {
		t.Error("target membership mismatch")
	}
	if !c.HasTask("calculator") || !c.HasTask("math_assistant") || c.HasTask("local") {
		t.Error("HasTask should cover both task spaces and nothing else")
	}

	utils := c.Utilities()
	if len(utils) != 2 || utils[0] != "calculator" || utils[1] != "validator" {
		t.Fatalf("declaration order not preserved: %v", utils)
	}
	targets := c.Targets()
	if len(targets) != 2 || targets[0] != "local" || targets[1] != "remote" {
		t.Fatalf("declaration order not preserved: %v", targets)
	}
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	declared := []Name{"a", "b"}
	c := NewCatalog(declared, nil, nil)

	// Mutating either the input slice or a returned slice must not leak
	// into the catalog.
	declared[0] = "mutated"
	got := c.Utilities()
	got[1] = "mutated"

	again := c.Utilities()
	if again[0] != "a" || again[1] != "b" {
		t.Fatalf("catalog state leaked through shared slices: %v", again)
	}
}

func TestCatalog_EmptyEnumerations(t *testing.T) {
	c := NewCatalog(nil, nil, nil)
	if c.HasUtility("anything") || c.HasApplication("anything") {
		t.Error("empty catalog must reject everything")
	}
	if len(c.Utilities()) != 0 || len(c.Applications()) != 0 || len(c.Targets()) != 0 {
		t.Error("empty catalog accessors should return empty slices")
	}
}
