package bson

import (
	"context"
	"testing"

	"github.com/zoobzio/autodict"
)

type student struct {
	Name string `dict:"name"`
	Age  int    `dict:"age"`
}

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/bson" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/bson")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	c := New()

	original := map[string]any{"name": "limo", "@": "Student"}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored map[string]any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if restored["name"] != "limo" || restored["@"] != "Student" {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	c := New()

	var v map[string]any
	err := c.Unmarshal([]byte("invalid bson"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestEngineRoundTrip(t *testing.T) {
	reg := autodict.NewRegistry()
	if err := autodict.Register[student](reg, autodict.WithName("Student")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	ad := autodict.New(reg)
	ctx := context.Background()

	data, err := ad.Encode(ctx, New(), student{Name: "limo", Age: 90})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	got, err := ad.Decode(ctx, New(), data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	want := student{Name: "limo", Age: 90}
	if got != want {
		t.Errorf("Decode() = %+v, want %+v", got, want)
	}
}

func TestUnmarshalNormalizesNested(t *testing.T) {
	c := New()

	original := map[string]any{
		"students": []any{
			map[string]any{"name": "limo", "@": "Student"},
		},
		"blob": []byte{1, 2, 3},
	}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var restored map[string]any
	if err := c.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	students, ok := restored["students"].([]any)
	if !ok || len(students) != 1 {
		t.Fatalf("students = %T %v, want []any of len 1", restored["students"], restored["students"])
	}
	first, ok := students[0].(map[string]any)
	if !ok {
		t.Fatalf("students[0] = %T, want map[string]any", students[0])
	}
	if first["name"] != "limo" {
		t.Errorf("students[0].name = %v, want limo", first["name"])
	}
	if blob, ok := restored["blob"].([]byte); !ok || len(blob) != 3 {
		t.Errorf("blob = %T %v, want []byte of len 3", restored["blob"], restored["blob"])
	}
}
