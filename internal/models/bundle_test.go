package models

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestBundleCoordinate(t *testing.T) {
	c, err := NewBundleCoordinate("org.apache.nifi", "nifi-foo-nar", "1.8.0")
	if err != nil {
		t.Fatalf("NewBundleCoordinate failed: %v", err)
	}
	if got := c.Coordinate(); got != "org.apache.nifi:nifi-foo-nar:1.8.0" {
		t.Errorf("Unexpected coordinate %s", got)
	}

	_, err = NewBundleCoordinate("org.apache.nifi", " ", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected a *ValidationError, got %v", err)
	}
	if want := []string{"artifactId is required", "version is required"}; !reflect.DeepEqual(ve.Problems, want) {
		t.Errorf("Expected problems %v, got %v", want, ve.Problems)
	}
}

func TestNewBuildDetailsDefaults(t *testing.T) {
	built := time.Date(2018, 8, 21, 14, 12, 55, 0, time.UTC)
	b, err := NewBuildDetails(BuildDetails{Revision: "a032175", Built: built})
	if err != nil {
		t.Fatalf("NewBuildDetails failed: %v", err)
	}

	want := BuildDetails{
		Tool:     UnknownValue,
		Flags:    NotAvailable,
		Branch:   UnknownValue,
		Tag:      UnknownValue,
		Revision: "a032175",
		BuiltBy:  UnknownValue,
		Built:    built,
	}
	if !reflect.DeepEqual(b, want) {
		t.Errorf("Expected %+v, got %+v", want, b)
	}

	if _, err := NewBuildDetails(BuildDetails{}); err == nil {
		t.Errorf("Expected an error without a build time")
	}
}

func TestNewRestrictionDetails(t *testing.T) {
	if _, err := NewRestrictionDetails("read filesystem", ""); err == nil {
		t.Errorf("Expected an error without an explanation")
	}

	r, err := NewRestrictionDetails("read filesystem", "Reads files")
	if err != nil {
		t.Fatalf("NewRestrictionDetails failed: %v", err)
	}
	if r.RequiredPermission != "read filesystem" {
		t.Errorf("Unexpected permission %s", r.RequiredPermission)
	}
}

func TestNewProvidedServiceAPI(t *testing.T) {
	if _, err := NewProvidedServiceAPI("org.apache.nifi.ssl.SSLContextService", BundleCoordinate{}); err == nil {
		t.Errorf("Expected an error without a bundle")
	}
	if _, err := NewProvidedServiceAPI("", BundleCoordinate{GroupID: "g", ArtifactID: "a", Version: "1"}); err == nil {
		t.Errorf("Expected an error without a class name")
	}
}

func TestExtensionDetailsDeduplicates(t *testing.T) {
	r := RestrictionDetails{RequiredPermission: "p", Explanation: "e"}
	s := ProvidedServiceAPI{ClassName: "a.Api", Bundle: BundleCoordinate{GroupID: "g", ArtifactID: "a", Version: "1"}}

	e, err := NewExtensionDetails(ExtensionDetails{
		Name:                "a.B",
		Type:                ExtensionProcessor,
		Tags:                []string{"x", "y", "x"},
		Restrictions:        []RestrictionDetails{r, r},
		ProvidedServiceAPIs: []ProvidedServiceAPI{s, s},
	})
	if err != nil {
		t.Fatalf("NewExtensionDetails failed: %v", err)
	}
	if want := []string{"x", "y"}; !reflect.DeepEqual(e.Tags, want) {
		t.Errorf("Expected tags %v, got %v", want, e.Tags)
	}
	if len(e.Restrictions) != 1 {
		t.Errorf("Expected 1 restriction, got %d", len(e.Restrictions))
	}
	if len(e.ProvidedServiceAPIs) != 1 {
		t.Errorf("Expected 1 provided API, got %d", len(e.ProvidedServiceAPIs))
	}

	// Identity is the name alone
	if !e.Equal(ExtensionDetails{Name: "a.B", Type: ExtensionReportingTask}) {
		t.Errorf("Extensions with the same name should be equal")
	}

	if _, err := NewExtensionDetails(ExtensionDetails{Name: "a.B"}); err == nil {
		t.Errorf("Expected an error without a type")
	}
}

func TestParseExtensionType(t *testing.T) {
	for _, s := range []string{"PROCESSOR", "CONTROLLER_SERVICE", "REPORTING_TASK"} {
		got, err := ParseExtensionType(s)
		if err != nil {
			t.Errorf("ParseExtensionType(%s) failed: %v", s, err)
			continue
		}
		if got != ExtensionType(s) {
			t.Errorf("Expected %s, got %s", s, got)
		}
	}
	if _, err := ParseExtensionType("processor"); err == nil {
		t.Errorf("Extension types are case sensitive")
	}
}

func TestNewBundleDetails(t *testing.T) {
	valid := BundleDetails{
		Coordinate:       BundleCoordinate{GroupID: "g", ArtifactID: "a", Version: "1"},
		SystemAPIVersion: "1.8.0",
		Build:            BuildDetails{Tool: "t", Revision: "r", Built: time.Unix(0, 0)},
		DocsContent:      "<extensions/>",
	}

	d, err := NewBundleDetails(valid)
	if err != nil {
		t.Fatalf("NewBundleDetails failed: %v", err)
	}
	if d.Extensions == nil || d.AdditionalDetails == nil {
		t.Errorf("Collections should be initialised")
	}

	broken := valid
	broken.SystemAPIVersion = " "
	broken.DocsContent = ""
	broken.Dependencies = []BundleCoordinate{{GroupID: "g"}}
	_, err = NewBundleDetails(broken)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Expected a *ValidationError, got %v", err)
	}
	if len(ve.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %v", ve.Problems)
	}
}

func TestIsErrorType(t *testing.T) {
	inner := NewError(ErrHeaderNotFound, "magic header not found")
	outer := &BundleError{Type: ErrInvalidBundle, Bundle: "x.nar", Err: fmt.Errorf("wrapped: %w", inner)}

	if !IsErrorType(outer, ErrInvalidBundle) {
		t.Errorf("Outer type not matched")
	}
	if !IsErrorType(outer, ErrHeaderNotFound) {
		t.Errorf("Wrapped type not matched")
	}
	if IsErrorType(outer, ErrDocsParse) {
		t.Errorf("Unrelated type matched")
	}
	if IsErrorType(errors.New("plain"), ErrDocsParse) {
		t.Errorf("Plain error matched")
	}
	if want := "[InvalidBundle] x.nar: wrapped: [HeaderNotFound] magic header not found"; outer.Error() != want {
		t.Errorf("Expected %q, got %q", want, outer.Error())
	}
}

func TestParseBundleType(t *testing.T) {
	for in, want := range map[string]BundleType{
		"":           BundleTypeUnknown,
		"auto":       BundleTypeUnknown,
		"nar":        BundleTypeNAR,
		"minifi-cpp": BundleTypeMinifiCpp,
		"cpp":        BundleTypeMinifiCpp,
	} {
		got, err := ParseBundleType(in)
		if err != nil {
			t.Errorf("ParseBundleType(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseBundleType(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseBundleType("jar"); !IsErrorType(err, ErrInvalidConfig) {
		t.Errorf("Expected invalid config error, got %v", err)
	}
}
