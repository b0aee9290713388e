// Package testing provides test fixtures for autodict.
package testing

import (
	"testing"

	"github.com/zoobzio/autodict"
)

// Student is the canonical flat fixture.
type Student struct {
	Name string `dict:"name"`
	Age  int    `dict:"age"`
}

// Apartment nests an ordered sequence of registered values.
type Apartment struct {
	Students []Student `dict:"students"`
}

// Level is a registered scalar with a readable name.
type Level int

// Levels.
const (
	LevelJunior Level = iota
	LevelSenior
)

func (l Level) String() string {
	switch l {
	case LevelJunior:
		return "junior"
	case LevelSenior:
		return "senior"
	default:
		return "unknown"
	}
}

// Campus exercises pointers, interfaces, mappings and registered scalars.
type Campus struct {
	Name      string               `dict:"name"`
	Dean      *Student             `dict:"dean"`
	Buildings map[string]Apartment `dict:"buildings"`
	Mascot    any                  `dict:"mascot"`
	Level     Level                `dict:"level"`
	Tags      []string             `dict:"tags,omitempty"`
}

// NewRegistry returns a registry with every fixture registered.
func NewRegistry(tb testing.TB, opts ...autodict.RegistryOption) *autodict.Registry {
	tb.Helper()
	reg := autodict.NewRegistry(opts...)
	for _, register := range []func(*autodict.Registry, ...autodict.RegisterOption) error{
		autodict.Register[Student],
		autodict.Register[Apartment],
		autodict.Register[Level],
		autodict.Register[Campus],
	} {
		if err := register(reg); err != nil {
			tb.Fatalf("Register() error: %v", err)
		}
	}
	return reg
}

// NewEngine returns an engine over NewRegistry.
func NewEngine(tb testing.TB, opts ...autodict.Option) *autodict.AutoDict {
	tb.Helper()
	return autodict.New(NewRegistry(tb), opts...)
}

// SampleApartment returns an apartment with three students in a fixed order.
func SampleApartment() Apartment {
	return Apartment{Students: []Student{
		{Name: "limo", Age: 90},
		{Name: "ada", Age: 36},
		{Name: "zed", Age: 20},
	}}
}

// SampleCampus returns a campus populated in every field.
func SampleCampus() Campus {
	return Campus{
		Name: "north",
		Dean: &Student{Name: "grace", Age: 85},
		Buildings: map[string]Apartment{
			"a": SampleApartment(),
			"b": {Students: []Student{{Name: "bo", Age: 19}}},
		},
		Mascot: Student{Name: "owl", Age: 3},
		Level:  LevelSenior,
		Tags:   []string{"old", "green"},
	}
}
