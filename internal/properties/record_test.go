package properties

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/browscap/internal/types"
)

func TestRecord_MarshalJSON(t *testing.T) {
	var r Record
	mustSet(t, &r, "Browser", "Teoma")
	mustSet(t, &r, "Crawler", "true")
	mustSet(t, &r, "Comment", "Ask Jeeves")

	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"Comment":"Ask Jeeves","Browser":"Teoma","Crawler":true}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}
}

func TestRecord_MarshalInvalidUTF8(t *testing.T) {
	var r Record
	mustSet(t, &r, "Browser", "Der gro\xdfe BilderSauger")

	_, err := json.Marshal(r)
	if !errors.Is(err, types.ErrEncoding) {
		t.Fatalf("Marshal() error = %v, want ErrEncoding", err)
	}
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"Browser":"Teoma","Crawler":true,"Version":"0.0"}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.String(Browser) != "Teoma" {
		t.Errorf("Browser = %q, want Teoma", r.String(Browser))
	}
	if v, ok := r.Get(Crawler); !ok || !v.Bool() {
		t.Errorf("Crawler = %v (set=%v), want true", v, ok)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}

	err := json.Unmarshal([]byte(`{"does-not-exist":"x"}`), &r)
	if !errors.Is(err, types.ErrUnknownProperty) {
		t.Errorf("Unmarshal() error = %v, want ErrUnknownProperty", err)
	}
}

func TestRecord_Merge(t *testing.T) {
	var parent, child Record
	mustSet(t, &parent, "Browser", "DefaultProperties")
	mustSet(t, &parent, "Platform", "unknown")
	mustSet(t, &parent, "Crawler", "false")
	mustSet(t, &child, "Browser", "Teoma")
	mustSet(t, &child, "Crawler", "true")

	child.Merge(&parent)

	if child.String(Browser) != "Teoma" {
		t.Errorf("child value overwritten: Browser = %q", child.String(Browser))
	}
	if child.String(Platform) != "unknown" {
		t.Errorf("Platform = %q, want inherited unknown", child.String(Platform))
	}
	if v, _ := child.Get(Crawler); !v.Bool() {
		t.Error("Crawler = false, want child value true")
	}
}

// Records survive a JSON round trip for any printable string value.
func TestRecord_RoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("record JSON round trip preserves values", prop.ForAll(
		func(browser, platform string, crawler bool) bool {
			var r Record
			r.Set(Browser, StringValue(browser))
			r.Set(Platform, StringValue(platform))
			r.Set(Crawler, BoolValue(crawler))

			data, err := json.Marshal(r)
			if err != nil {
				return false
			}
			var back Record
			if err := json.Unmarshal(data, &back); err != nil {
				return false
			}
			v, _ := back.Get(Crawler)
			return back.String(Browser) == browser &&
				back.String(Platform) == platform &&
				v.Bool() == crawler &&
				back.Len() == 3
		},
		gen.AnyString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func mustSet(t *testing.T, r *Record, property string, raw any) {
	t.Helper()
	if err := r.SetRaw(property, raw); err != nil {
		t.Fatalf("SetRaw(%q) error = %v", property, err)
	}
}
