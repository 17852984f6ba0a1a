package properties

import (
	"errors"
	"testing"

	"github.com/solatis/browscap/internal/types"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		property string
		want     any
	}{
		// Boolean
		{name: "boolean: string one", value: "1", property: "Alpha", want: true},
		{name: "boolean: empty string", value: "", property: "Alpha", want: false},
		{name: "boolean: bool true", value: true, property: "Alpha", want: true},
		{name: "boolean: bool false", value: false, property: "Alpha", want: false},
		{name: "boolean: string true", value: "true", property: "Crawler", want: true},
		{name: "boolean: string false", value: "false", property: "Crawler", want: false},
		{name: "boolean: capitalized true is not true", value: "True", property: "isMobileDevice", want: false},
		{name: "boolean: zero", value: "0", property: "Cookies", want: false},

		// InArray
		{name: "inarray: valid browser type", value: "Browser", property: "Browser_Type", want: "Browser"},
		{name: "inarray: invalid browser type degrades", value: "Spaceship", property: "Browser_Type", want: ""},
		{name: "inarray: device type", value: "Mobile Phone", property: "Device_Type", want: "Mobile Phone"},
		{name: "inarray: pointing method is case-sensitive", value: "Touchscreen", property: "Device_Pointing_Method", want: ""},
		{name: "inarray: bits", value: "64", property: "Platform_Bits", want: "64"},
		{name: "inarray: invalid bits", value: "128", property: "Browser_Bits", want: ""},

		// Passthrough
		{name: "string passthrough", value: "Teoma", property: "Browser", want: "Teoma"},
		{name: "number passthrough keeps text", value: "1.0", property: "Version", want: "1.0"},
		{name: "generic passthrough", value: "WinXP", property: "Platform_Version", want: "WinXP"},
		{name: "parent passthrough", value: "DefaultProperties", property: "Parent", want: "DefaultProperties"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.property)
			if err != nil {
				t.Fatalf("Coerce() error = %v", err)
			}
			if got.Interface() != tt.want {
				t.Errorf("Coerce() = %#v, want %#v", got.Interface(), tt.want)
			}
		})
	}
}

func TestCoerce_UnknownProperty(t *testing.T) {
	_, err := Coerce("x", "does-not-exist")
	if !errors.Is(err, types.ErrUnknownProperty) {
		t.Fatalf("Coerce() error = %v, want ErrUnknownProperty", err)
	}
	if !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("Coerce() error = %v, want ErrInvalidArgument", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		property string
		want     Kind
	}{
		{"Comment", KindString},
		{"Device_Brand_Name", KindString},
		{"PatternId", KindString},
		{"Browser_Type", KindInArray},
		{"Device_Pointing_Method", KindInArray},
		{"Platform_Version", KindGeneric},
		{"Released", KindGeneric},
		{"CssVersion", KindNumber},
		{"MinorVer", KindNumber},
		{"isModified", KindBoolean},
		{"MasterParent", KindBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			got, err := Classify(tt.property)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := Classify("does-not-exist"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("Classify(does-not-exist) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := Classify("browser"); err == nil {
		t.Error("Classify() should be case-sensitive")
	}
}

func TestNames_RoundTrip(t *testing.T) {
	for _, n := range Names() {
		got, err := Lookup(n.String())
		if err != nil {
			t.Fatalf("Lookup(%q) error = %v", n.String(), err)
		}
		if got != n {
			t.Errorf("Lookup(%q) = %v, want %v", n.String(), got, n)
		}
		if n.Kind() == KindInArray && len(n.Allowed()) == 0 {
			t.Errorf("%s is enumerated but has no allowed values", n)
		}
	}
}
