// Package extensiondocs parses the extension-docs descriptor embedded in a
// bundle into the extensions it declares.
package extensiondocs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ralt/bundlemeta/internal/models"
)

// DescriptorPath is where a bundle keeps its extension-docs descriptor
const DescriptorPath = "META-INF/docs/extension-docs.xml"

type elementKind int

const (
	elementOther elementKind = iota
	elementNifiAPIVersion
	elementExtension
	elementName
	elementDescription
	elementType
	elementTags
	elementTag
	elementGeneralRestrictionExplanation
	elementRestriction
	elementRequiredPermission
	elementExplanation
	elementService
	elementClassName
	elementGroupID
	elementArtifactID
	elementVersion
)

// elementKinds maps recognised element names; anything else is elementOther
var elementKinds = map[string]elementKind{
	"nifiApiVersion":                elementNifiAPIVersion,
	"extension":                     elementExtension,
	"name":                          elementName,
	"description":                   elementDescription,
	"type":                          elementType,
	"tags":                          elementTags,
	"tag":                           elementTag,
	"generalRestrictionExplanation": elementGeneralRestrictionExplanation,
	"restriction":                   elementRestriction,
	"requiredPermission":            elementRequiredPermission,
	"explanation":                   elementExplanation,
	"service":                       elementService,
	"className":                     elementClassName,
	"groupId":                       elementGroupID,
	"artifactId":                    elementArtifactID,
	"version":                       elementVersion,
}

func kindOf(name string) elementKind {
	if k, ok := elementKinds[name]; ok {
		return k
	}
	return elementOther
}

// openKind is the innermost value currently being built
type openKind int

const (
	openNone openKind = iota
	openExtension
	openRestriction
	openService
)

type restrictionFields struct {
	permission  string
	explanation string
}

type serviceFields struct {
	className  string
	groupID    string
	artifactID string
	version    string
}

// parser is the state machine: what is open, the stack of open elements
// and the text collected for the innermost recognised element.
type parser struct {
	open        openKind
	stack       []elementKind
	text        strings.Builder
	extension   models.ExtensionDetails
	restriction restrictionFields
	service     serviceFields
	docs        models.ExtensionDocs
}

// Parse reads a descriptor and returns the extensions it declares
func Parse(r io.Reader) (*models.ExtensionDocs, error) {
	p := &parser{}
	dec := xml.NewDecoder(r)
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			p.start(kindOf(t.Name.Local))
		case xml.EndElement:
			if err := p.end(); err != nil {
				return nil, parseError(err)
			}
		case xml.CharData:
			if p.top() != elementOther {
				p.text.Write(t)
			}
		}
	}

	if !sawRoot {
		return nil, parseError(errors.New("document has no root element"))
	}
	return &p.docs, nil
}

func (p *parser) top() elementKind {
	if len(p.stack) == 0 {
		return elementOther
	}
	return p.stack[len(p.stack)-1]
}

// parent returns the element enclosing the innermost one
func (p *parser) parent() elementKind {
	if len(p.stack) < 2 {
		return elementOther
	}
	return p.stack[len(p.stack)-2]
}

func (p *parser) start(kind elementKind) {
	p.stack = append(p.stack, kind)
	if kind != elementOther {
		p.text.Reset()
	}

	switch {
	case kind == elementExtension:
		p.open = openExtension
		p.extension = models.ExtensionDetails{}
	case kind == elementRestriction && p.open == openExtension:
		p.open = openRestriction
		p.restriction = restrictionFields{}
	case kind == elementService && p.open == openExtension:
		p.open = openService
		p.service = serviceFields{}
	}
}

func (p *parser) end() error {
	kind, parent := p.top(), p.parent()
	text := strings.TrimSpace(p.text.String())
	p.stack = p.stack[:len(p.stack)-1]
	if kind == elementOther {
		return nil
	}
	defer p.text.Reset()

	switch p.open {
	case openNone:
		if kind == elementNifiAPIVersion {
			p.docs.SystemAPIVersion = text
		}
	case openExtension:
		return p.endInExtension(kind, parent, text)
	case openRestriction:
		return p.endInRestriction(kind, parent, text)
	case openService:
		return p.endInService(kind, parent, text)
	}
	return nil
}

func (p *parser) endInExtension(kind, parent elementKind, text string) error {
	switch kind {
	case elementNifiAPIVersion:
		p.docs.SystemAPIVersion = text
	case elementName:
		if parent == elementExtension {
			p.extension.Name = text
		}
	case elementDescription:
		if parent == elementExtension {
			p.extension.Description = text
		}
	case elementType:
		if parent == elementExtension {
			t, err := models.ParseExtensionType(text)
			if err != nil {
				return err
			}
			p.extension.Type = t
		}
	case elementTag:
		if parent == elementTags {
			p.extension.AddTag(text)
		}
	case elementGeneralRestrictionExplanation:
		if text != "" {
			p.extension.GeneralRestrictionExplanation = text
		}
	case elementExtension:
		e, err := models.NewExtensionDetails(p.extension)
		if err != nil {
			return err
		}
		p.docs.AddExtension(e)
		p.open = openNone
		p.extension = models.ExtensionDetails{}
	}
	return nil
}

func (p *parser) endInRestriction(kind, parent elementKind, text string) error {
	switch kind {
	case elementRequiredPermission:
		if parent == elementRestriction {
			p.restriction.permission = text
		}
	case elementExplanation:
		if parent == elementRestriction {
			p.restriction.explanation = text
		}
	case elementRestriction:
		r, err := models.NewRestrictionDetails(p.restriction.permission, p.restriction.explanation)
		if err != nil {
			return err
		}
		p.extension.AddRestriction(r)
		p.open = openExtension
	}
	return nil
}

func (p *parser) endInService(kind, parent elementKind, text string) error {
	if parent == elementService {
		switch kind {
		case elementClassName:
			p.service.className = text
		case elementGroupID:
			p.service.groupID = text
		case elementArtifactID:
			p.service.artifactID = text
		case elementVersion:
			p.service.version = text
		}
		return nil
	}
	if kind != elementService {
		return nil
	}

	coordinate, err := models.NewBundleCoordinate(p.service.groupID, p.service.artifactID, p.service.version)
	if err != nil {
		return fmt.Errorf("service %s: %w", p.service.className, err)
	}
	api, err := models.NewProvidedServiceAPI(p.service.className, coordinate)
	if err != nil {
		return err
	}
	p.extension.AddProvidedServiceAPI(api)
	p.open = openExtension
	return nil
}

func parseError(err error) error {
	return &models.BundleError{
		Type: models.ErrDocsParse,
		Err:  fmt.Errorf("failed to parse extension docs: %w", err),
	}
}
