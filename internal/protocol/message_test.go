package protocol

import "testing"

func TestParseHandshake(t *testing.T) {
	msg, err := Parse([]byte(`{"method":"handshake","user":"alice","project_id":"p1"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	method, ok := msg.Method()
	if !ok || method != "handshake" {
		t.Errorf("Method() = %q, %v, want %q, true", method, ok, "handshake")
	}
	user, ok := msg.String("user")
	if !ok || user != "alice" {
		t.Errorf("String(user) = %q, %v, want %q, true", user, ok, "alice")
	}
	pid, ok := msg.String("project_id")
	if !ok || pid != "p1" {
		t.Errorf("String(project_id) = %q, %v, want %q, true", pid, ok, "p1")
	}
}

func TestParseRejectsNonObjectRoot(t *testing.T) {
	cases := []string{`[1,2,3]`, `"hello"`, `42`, `true`, `null`}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", c)
		}
	}
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`not json at all`)); err == nil {
		t.Error("Parse of garbage succeeded, want error")
	}
}

func TestMethodMissingOrNotString(t *testing.T) {
	msg, err := Parse([]byte(`{"project_id":"p1"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := msg.Method(); ok {
		t.Error("Method() ok=true for message with no method field")
	}

	msg, err = Parse([]byte(`{"method":123}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := msg.Method(); ok {
		t.Error("Method() ok=true for non-string method field")
	}
}

func TestNestedObjectKeysIgnored(t *testing.T) {
	// A nested object under an unrelated key must not confuse top-level
	// field lookup, and its keys must not be reachable via String/Raw.
	msg, err := Parse([]byte(`{"method":"set","name":"x","value":"1","extra":{"method":"handshake"}}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	method, _ := msg.Method()
	if method != "set" {
		t.Errorf("Method() = %q, want %q (top-level, not nested)", method, "set")
	}
}

func TestRawPreservesValueSpan(t *testing.T) {
	msg, err := Parse([]byte(`{"method":"set","name":"x","value":"42"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	raw, ok := msg.Raw("value")
	if !ok {
		t.Fatal("Raw(value) not found")
	}
	if string(raw) != `"42"` {
		t.Errorf("Raw(value) = %q, want %q (quotes preserved)", raw, `"42"`)
	}

	msg, err = Parse([]byte(`{"method":"set","name":"x","value":42}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	raw, ok = msg.Raw("value")
	if !ok || string(raw) != "42" {
		t.Errorf("Raw(value) = %q, %v, want %q, true (bare primitive)", raw, ok, "42")
	}
}

func TestIsStringOrPrimitive(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`"a string"`, true},
		{`42`, true},
		{`-3.14`, true},
		{`true`, true},
		{`false`, true},
		{`null`, true},
		{`{"a":1}`, false},
		{`[1,2,3]`, false},
		{``, false},
	}
	for _, c := range cases {
		if got := IsStringOrPrimitive([]byte(c.raw)); got != c.want {
			t.Errorf("IsStringOrPrimitive(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestTooManyTopLevelFields(t *testing.T) {
	obj := "{"
	for i := 0; i < maxTopLevelFields+1; i++ {
		if i > 0 {
			obj += ","
		}
		obj += `"k` + string(rune('a'+i%26)) + string(rune('A'+i/26)) + `":1`
	}
	obj += "}"
	if _, err := Parse([]byte(obj)); err != ErrTooManyFields {
		t.Errorf("Parse() = %v, want ErrTooManyFields", err)
	}
}
