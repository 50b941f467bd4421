package engine

import (
	"bytes"
	"strings"
	"testing"
)

func runAndCapture(t *testing.T, src string) string {
	t.Helper()
	e := New()
	var buf bytes.Buffer
	e.Out = &buf
	if _, err := e.Run(src); err != nil {
		t.Fatalf("Run(%q): unexpected error: %v", src, err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"addition", `var a = 1 + 2; print(a)`, "3"},
		{"string length", `var s = "he" + "llo"; print(s.length)`, "5"},
		{"typeof undeclared-ish var", `var x; print(typeof x)`, "undefined"},
		{"chained assignment", `var a = 1, b = 2; a = b = 5; print(a, b)`, "5 5"},
		{"function call", `function f(x){ return x*x; } print(f(6))`, "36"},
		{"for loop accumulation", `var c = 0; for (var i=0;i<3;i=i+1) c = c + i; print(c)`, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runAndCapture(t, tt.src)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoundaryCases(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"undefined plus number is NaN", `var x; print(x + 1)`, "NaN"},
		{"undefined plus string concatenates", `var x; print(x + "x")`, "undefinedx"},
		{"loose equal null undefined", `var x; print(null == x)`, "true"},
		{"strict not equal null undefined", `var x; print(null === x)`, "false"},
		{"empty string bitwise or zero", `print("" | 0)`, "0"},
		{"string multiplication coerces", `print("3" * "4")`, "12"},
		{"var a=b=c declares all three", `var a = b = c = 7; print(a, b, c)`, "7 7 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runAndCapture(t, tt.src)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClosureCounter(t *testing.T) {
	src := `
function counter() {
	var n = 0;
	return function() {
		n = n + 1;
		return n;
	};
}
var c = counter();
c();
c();
print(c());
`
	got := runAndCapture(t, src)
	if got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func TestTryCatchFinally(t *testing.T) {
	src := `
var log = "";
function risky() {
	throw "boom";
}
try {
	risky();
} catch (e) {
	log = log + "caught:" + e;
} finally {
	log = log + ";finally";
}
print(log);
`
	got := runAndCapture(t, src)
	if got != "caught:boom;finally" {
		t.Fatalf("got %q, want %q", got, "caught:boom;finally")
	}
}

func TestArrayPushAndLength(t *testing.T) {
	src := `
var a = [1, 2];
a.push(3);
print(a.length);
`
	got := runAndCapture(t, src)
	if got != "3" {
		t.Fatalf("got %q, want %q", got, "3")
	}
}

func TestUncaughtThrowSurfacesAsError(t *testing.T) {
	e := New()
	var buf bytes.Buffer
	e.Out = &buf
	_, err := e.Run(`throw "nope";`)
	if err == nil {
		t.Fatalf("expected an error from an uncaught throw")
	}
}
