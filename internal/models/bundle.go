package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Build detail defaults applied when a manifest leaves an attribute out
const (
	UnknownValue = "unknown"
	NotAvailable = "N/A"
)

// BundleCoordinate identifies a bundle by group, artifact and version
type BundleCoordinate struct {
	GroupID    string `json:"groupId" yaml:"groupId"`
	ArtifactID string `json:"artifactId" yaml:"artifactId"`
	Version    string `json:"version" yaml:"version"`
}

// NewBundleCoordinate validates and returns a coordinate
func NewBundleCoordinate(groupID, artifactID, version string) (BundleCoordinate, error) {
	c := BundleCoordinate{GroupID: groupID, ArtifactID: artifactID, Version: version}
	return c, c.Validate()
}

// Validate checks that all three parts are present
func (c BundleCoordinate) Validate() error {
	v := newValidator("bundle coordinate")
	v.notBlank("groupId", c.GroupID)
	v.notBlank("artifactId", c.ArtifactID)
	v.notBlank("version", c.Version)
	return v.err()
}

// IsZero reports whether no part of the coordinate is set
func (c BundleCoordinate) IsZero() bool {
	return c == BundleCoordinate{}
}

// Coordinate returns the "group:artifact:version" form, which is also the
// coordinate's identity.
func (c BundleCoordinate) Coordinate() string {
	return fmt.Sprintf("%s:%s:%s", c.GroupID, c.ArtifactID, c.Version)
}

func (c BundleCoordinate) String() string {
	return c.Coordinate()
}

// BuildDetails is the provenance recorded in a bundle manifest
type BuildDetails struct {
	Tool     string    `json:"tool" yaml:"tool"`
	Flags    string    `json:"flags" yaml:"flags"`
	Branch   string    `json:"branch" yaml:"branch"`
	Tag      string    `json:"tag" yaml:"tag"`
	Revision string    `json:"revision" yaml:"revision"`
	BuiltBy  string    `json:"builtBy" yaml:"builtBy"`
	Built    time.Time `json:"built" yaml:"built"`
}

// NewBuildDetails fills in defaults for blank fields and validates the result
func NewBuildDetails(b BuildDetails) (BuildDetails, error) {
	b.Tool = orDefault(b.Tool, UnknownValue)
	b.Flags = orDefault(b.Flags, NotAvailable)
	b.Branch = orDefault(b.Branch, UnknownValue)
	b.Tag = orDefault(b.Tag, UnknownValue)
	b.Revision = orDefault(b.Revision, UnknownValue)
	b.BuiltBy = orDefault(b.BuiltBy, UnknownValue)

	v := newValidator("build details")
	v.notBlank("tool", b.Tool)
	v.notBlank("revision", b.Revision)
	v.check(!b.Built.IsZero(), "built timestamp is required")
	return b, v.err()
}

// RestrictionDetails is a permission an extension requires
type RestrictionDetails struct {
	RequiredPermission string `json:"requiredPermission" yaml:"requiredPermission"`
	Explanation        string `json:"explanation" yaml:"explanation"`
}

// NewRestrictionDetails validates and returns a restriction
func NewRestrictionDetails(permission, explanation string) (RestrictionDetails, error) {
	v := newValidator("restriction")
	v.notBlank("requiredPermission", permission)
	v.notBlank("explanation", explanation)
	return RestrictionDetails{RequiredPermission: permission, Explanation: explanation}, v.err()
}

// ProvidedServiceAPI is a controller service API implemented by an extension
type ProvidedServiceAPI struct {
	ClassName string           `json:"className" yaml:"className"`
	Bundle    BundleCoordinate `json:"bundle" yaml:"bundle"`
}

// NewProvidedServiceAPI validates and returns a provided service API
func NewProvidedServiceAPI(className string, bundle BundleCoordinate) (ProvidedServiceAPI, error) {
	v := newValidator("provided service API")
	v.notBlank("className", className)
	v.check(!bundle.IsZero(), "bundle coordinate is required")
	if !bundle.IsZero() {
		if err := bundle.Validate(); err != nil {
			v.check(false, err.Error())
		}
	}
	return ProvidedServiceAPI{ClassName: className, Bundle: bundle}, v.err()
}

// ExtensionType is the kind of component an extension provides
type ExtensionType string

const (
	ExtensionProcessor         ExtensionType = "PROCESSOR"
	ExtensionControllerService ExtensionType = "CONTROLLER_SERVICE"
	ExtensionReportingTask     ExtensionType = "REPORTING_TASK"
)

// ParseExtensionType maps a descriptor value onto an ExtensionType
func ParseExtensionType(s string) (ExtensionType, error) {
	switch t := ExtensionType(s); t {
	case ExtensionProcessor, ExtensionControllerService, ExtensionReportingTask:
		return t, nil
	default:
		return "", fmt.Errorf("unknown extension type %q", s)
	}
}

// ExtensionDetails describes one processor, controller service or reporting
// task. Two extensions with the same name are the same extension.
type ExtensionDetails struct {
	Name                          string               `json:"name" yaml:"name"`
	Description                   string               `json:"description,omitempty" yaml:"description,omitempty"`
	Type                          ExtensionType        `json:"type" yaml:"type"`
	Tags                          []string             `json:"tags,omitempty" yaml:"tags,omitempty"`
	GeneralRestrictionExplanation string               `json:"generalRestrictionExplanation,omitempty" yaml:"generalRestrictionExplanation,omitempty"`
	Restrictions                  []RestrictionDetails `json:"restrictions,omitempty" yaml:"restrictions,omitempty"`
	ProvidedServiceAPIs           []ProvidedServiceAPI `json:"providedServiceApis,omitempty" yaml:"providedServiceApis,omitempty"`
}

// NewExtensionDetails validates e and collapses duplicate tags,
// restrictions and service APIs.
func NewExtensionDetails(e ExtensionDetails) (ExtensionDetails, error) {
	v := newValidator("extension")
	v.notBlank("name", e.Name)
	v.check(e.Type != "", "type is required")

	out := ExtensionDetails{
		Name:                          e.Name,
		Description:                   e.Description,
		Type:                          e.Type,
		GeneralRestrictionExplanation: e.GeneralRestrictionExplanation,
	}
	for _, tag := range e.Tags {
		out.AddTag(tag)
	}
	for _, r := range e.Restrictions {
		out.AddRestriction(r)
	}
	for _, s := range e.ProvidedServiceAPIs {
		out.AddProvidedServiceAPI(s)
	}
	return out, v.err()
}

// Equal compares extensions by name only
func (e ExtensionDetails) Equal(other ExtensionDetails) bool {
	return e.Name == other.Name
}

// AddTag adds tag unless already present
func (e *ExtensionDetails) AddTag(tag string) {
	for _, t := range e.Tags {
		if t == tag {
			return
		}
	}
	e.Tags = append(e.Tags, tag)
}

// AddRestriction adds r unless an equal restriction is present
func (e *ExtensionDetails) AddRestriction(r RestrictionDetails) {
	for _, existing := range e.Restrictions {
		if existing == r {
			return
		}
	}
	e.Restrictions = append(e.Restrictions, r)
}

// AddProvidedServiceAPI adds s unless the same class and coordinate is present
func (e *ExtensionDetails) AddProvidedServiceAPI(s ProvidedServiceAPI) {
	for _, existing := range e.ProvidedServiceAPIs {
		if existing == s {
			return
		}
	}
	e.ProvidedServiceAPIs = append(e.ProvidedServiceAPIs, s)
}

// ExtensionDocs is the parsed content of an extension-docs descriptor
type ExtensionDocs struct {
	SystemAPIVersion string
	Extensions       []ExtensionDetails
}

// AddExtension adds e unless an extension with the same name is present.
// It reports whether e was added.
func (d *ExtensionDocs) AddExtension(e ExtensionDetails) bool {
	for _, existing := range d.Extensions {
		if existing.Equal(e) {
			return false
		}
	}
	d.Extensions = append(d.Extensions, e)
	return true
}

// BundleDetails is everything extracted from one bundle
type BundleDetails struct {
	Coordinate        BundleCoordinate   `json:"coordinate" yaml:"coordinate"`
	Dependencies      []BundleCoordinate `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	SystemAPIVersion  string             `json:"systemApiVersion" yaml:"systemApiVersion"`
	Extensions        []ExtensionDetails `json:"extensions" yaml:"extensions"`
	AdditionalDetails map[string]string  `json:"additionalDetails,omitempty" yaml:"additionalDetails,omitempty"`
	Build             BuildDetails       `json:"build" yaml:"build"`
	DocsContent       string             `json:"-" yaml:"-"`
}

// NewBundleDetails validates d. Every violated invariant is reported in
// the returned *ValidationError.
func NewBundleDetails(d BundleDetails) (*BundleDetails, error) {
	v := newValidator("bundle details")
	if err := d.Coordinate.Validate(); err != nil {
		v.check(false, err.Error())
	}
	for _, dep := range d.Dependencies {
		if err := dep.Validate(); err != nil {
			v.check(false, "dependency "+err.Error())
		}
	}
	v.notBlank("systemApiVersion", d.SystemAPIVersion)
	v.check(!d.Build.Built.IsZero(), "build details are required")
	v.notBlank("docsContent", d.DocsContent)

	if d.Extensions == nil {
		d.Extensions = []ExtensionDetails{}
	}
	if d.AdditionalDetails == nil {
		d.AdditionalDetails = map[string]string{}
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ExtensionNames returns the sorted names of all extensions
func (d *BundleDetails) ExtensionNames() []string {
	names := make([]string, 0, len(d.Extensions))
	for _, e := range d.Extensions {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
