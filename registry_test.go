package autodict

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/go-test/deep"
)

func TestRegister_DefaultID(t *testing.T) {
	reg := NewRegistry()
	if err := Register[Student](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	desc, err := reg.LookupByID("Student")
	if err != nil {
		t.Fatalf("LookupByID() error: %v", err)
	}
	if desc.Type() != reflect.TypeFor[Student]() {
		t.Errorf("Type() = %v, want Student", desc.Type())
	}
	if desc.HasCustomToDict() || desc.HasCustomFromDict() {
		t.Error("plain struct should not have custom converters")
	}
	if !desc.CanToDict() || !desc.CanFromDict() {
		t.Error("plain registration should enable both directions")
	}
	if diff := deep.Equal(desc.Keys(), []string{"name", "age"}); diff != nil {
		t.Errorf("Keys() diff: %v", diff)
	}
}

func TestRegister_QualifiedNames(t *testing.T) {
	reg := NewRegistry(WithQualifiedNames())
	if err := Register[Student](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	want := "github.com/zoobzio/autodict.Student"
	if _, err := reg.LookupByID(want); err != nil {
		t.Errorf("LookupByID(%q) error: %v", want, err)
	}
}

func TestRegister_WithName(t *testing.T) {
	reg := NewRegistry()
	if err := Register[Student](reg, WithName("pupil")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	desc, err := reg.LookupByType(reflect.TypeFor[Student]())
	if err != nil {
		t.Fatalf("LookupByType() error: %v", err)
	}
	if desc.ID() != "pupil" {
		t.Errorf("ID() = %q, want pupil", desc.ID())
	}
}

func TestRegister_Pointer(t *testing.T) {
	reg := NewRegistry()
	if err := Register[*Student](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	desc, err := reg.LookupByType(reflect.TypeFor[**Student]())
	if err != nil {
		t.Fatalf("LookupByType() error: %v", err)
	}
	if desc.ID() != "Student" {
		t.Errorf("ID() = %q, want Student", desc.ID())
	}
}

func TestRegister_Idempotent(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < 3; i++ {
		if err := Register[Student](reg); err != nil {
			t.Fatalf("Register() #%d error: %v", i, err)
		}
	}
	if n := len(reg.Descriptors()); n != 1 {
		t.Errorf("Descriptors() len = %d, want 1", n)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := NewRegistry()
	if err := Register[Student](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	t.Run("identifier taken", func(t *testing.T) {
		err := Register[Dog](reg, WithName("Student"))
		if !errors.Is(err, ErrDuplicateRegistration) {
			t.Errorf("Register() error = %v, want ErrDuplicateRegistration", err)
		}
	})

	t.Run("type under new identifier", func(t *testing.T) {
		err := Register[Student](reg, WithName("Pupil"))
		if !errors.Is(err, ErrDuplicateRegistration) {
			t.Errorf("Register() error = %v, want ErrDuplicateRegistration", err)
		}
	})
}

func TestRegisterType_Invalid(t *testing.T) {
	reg := NewRegistry()

	if err := reg.RegisterType(nil); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("RegisterType(nil) error = %v, want ErrUnregisteredType", err)
	}
	if err := reg.RegisterType(reflect.TypeFor[Speaker]()); !errors.Is(err, ErrUnregisteredType) {
		t.Errorf("RegisterType(interface) error = %v, want ErrUnregisteredType", err)
	}
}

func TestRegister_TagValidation(t *testing.T) {
	type Reserved struct {
		Kind string `dict:"@"`
	}
	type Shared struct {
		A string `dict:"k"`
		B string `dict:"k"`
	}
	type BadOption struct {
		A string `dict:"a,sorted"`
	}

	tests := []struct {
		name    string
		typ     reflect.Type
		wantErr error
	}{
		{"reserved key", reflect.TypeFor[Reserved](), ErrReservedKey},
		{"duplicate key", reflect.TypeFor[Shared](), ErrInvalidTag},
		{"unknown option", reflect.TypeFor[BadOption](), ErrInvalidTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().RegisterType(tt.typ)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RegisterType() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := NewRegistry(WithTypeKey("_type")).RegisterType(reflect.TypeFor[Reserved]()); err != nil {
		t.Errorf("RegisterType() with custom type key error: %v", err)
	}
}

func TestRegister_KeyNamer(t *testing.T) {
	type Profile struct {
		FirstName string
		LastName  string
	}

	reg := NewRegistry()
	if err := Register[Profile](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	desc, _ := reg.LookupByID("Profile")
	if diff := deep.Equal(desc.Keys(), []string{"first_name", "last_name"}); diff != nil {
		t.Errorf("Keys() diff: %v", diff)
	}

	reg = NewRegistry(WithKeyNamer(strings.ToUpper))
	if err := Register[Profile](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	desc, _ = reg.LookupByID("Profile")
	if diff := deep.Equal(desc.Keys(), []string{"FIRSTNAME", "LASTNAME"}); diff != nil {
		t.Errorf("Keys() diff: %v", diff)
	}
}

func TestRegister_OverrideDetection(t *testing.T) {
	reg := NewRegistry()
	if err := Register[Temperature](reg); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	desc, _ := reg.LookupByID("Temperature")
	if !desc.HasCustomToDict() || !desc.HasCustomFromDict() {
		t.Error("MarshalDict/UnmarshalDict should be detected as custom converters")
	}
}

func TestLookup_Unknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.LookupByID("Ghost")
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("LookupByID() error = %v, want ErrUnknownType", err)
	}

	var te *TypeError
	if !errors.As(err, &te) || te.ID != "Ghost" {
		t.Errorf("LookupByID() error = %v, want TypeError with ID Ghost", err)
	}

	if _, err := reg.LookupByType(reflect.TypeFor[Student]()); !errors.Is(err, ErrUnknownType) {
		t.Errorf("LookupByType() error = %v, want ErrUnknownType", err)
	}
	if _, err := reg.LookupByType(nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("LookupByType(nil) error = %v, want ErrUnknownType", err)
	}
}

func TestDescriptors_Sorted(t *testing.T) {
	reg := NewRegistry()
	_ = Register[Student](reg)
	_ = Register[Apartment](reg)
	_ = Register[Dog](reg)

	var ids []string
	for _, d := range reg.Descriptors() {
		ids = append(ids, d.ID())
	}
	if diff := deep.Equal(ids, []string{"Apartment", "Dog", "Student"}); diff != nil {
		t.Errorf("Descriptors() diff: %v", diff)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = Register[Student](reg)
			_ = Register[Apartment](reg)
		}()
		go func() {
			defer wg.Done()
			_, _ = reg.LookupByID("Student")
			_ = reg.Descriptors()
		}()
	}
	wg.Wait()

	if n := len(reg.Descriptors()); n != 2 {
		t.Errorf("Descriptors() len = %d, want 2", n)
	}
}

func TestRegister_ConflictingOptions(t *testing.T) {
	toDict := ToDictFunc(func(s Student) (map[string]any, error) {
		return map[string]any{"name": s.Name}, nil
	})

	tests := []struct {
		name   string
		first  []RegisterOption
		second []RegisterOption
	}{
		{"direction narrowed", nil, []RegisterOption{ToDictOnly()}},
		{"direction widened", []RegisterOption{FromDictOnly()}, nil},
		{"converter added", nil, []RegisterOption{toDict}},
		{"converter dropped", []RegisterOption{toDict}, nil},
		{"constructor added", nil, []RegisterOption{ConstructorFunc(func(map[string]any) (Student, error) {
			return Student{}, nil
		})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			if err := Register[Student](reg, tt.first...); err != nil {
				t.Fatalf("Register() error: %v", err)
			}
			err := Register[Student](reg, tt.second...)
			if !errors.Is(err, ErrDuplicateRegistration) {
				t.Errorf("Register() error = %v, want ErrDuplicateRegistration", err)
			}
		})
	}

	reg := NewRegistry()
	for i := 0; i < 2; i++ {
		if err := Register[Student](reg, toDict, ToDictOnly()); err != nil {
			t.Errorf("Register() #%d error: %v", i, err)
		}
	}
}
