package msgpack

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
	if c.ContentType() != "application/msgpack" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/msgpack")
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
	err := c.Unmarshal([]byte("\xc1"), &v)
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

func TestWithSortedKeys(t *testing.T) {
	c := New(WithSortedKeys())
	m := map[string]any{"b": 1, "a": 2, "c": 3, "@": "X"}

	first, err := c.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Marshal(m)
		if err != nil {
			t.Fatalf("Marshal() error: %v", err)
		}
		if string(again) != string(first) {
			t.Fatal("sorted Marshal() should be deterministic")
		}
	}
}
