package extractor

import (
	"context"
	"io"
	"strings"
	"unicode"

	"mavencrawler/shared/domain/entity"
)

type pomElement int

const (
	pomNone pomElement = iota
	pomIgnore
	pomProject
	pomGroupID
	pomArtifactID
	pomName
	pomVersion
	pomDescription
	pomURL
	pomSCM
	pomConnection
)

var pomElements = map[string]pomElement{
	"project":     pomProject,
	"groupId":     pomGroupID,
	"artifactId":  pomArtifactID,
	"name":        pomName,
	"version":     pomVersion,
	"description": pomDescription,
	"url":         pomURL,
	"scm":         pomSCM,
	"connection":  pomConnection,
}

// pomMachine keeps a stack of element kinds. Leaf names such as url or
// groupId are ambiguous on their own, so text is routed by the pair
// (top, parent). Unknown tags push pomIgnore to keep depth exact.
type pomMachine struct {
	stack  []pomElement
	record entity.VersionPom
}

func newPOMMachine() *pomMachine {
	return &pomMachine{stack: []pomElement{pomNone}}
}

func (m *pomMachine) start(name string) {
	kind, ok := pomElements[name]
	if !ok {
		kind = pomIgnore
	}
	m.stack = append(m.stack, kind)
}

func (m *pomMachine) end(string) {
	if len(m.stack) > 1 {
		m.stack = m.stack[:len(m.stack)-1]
	}
}

func (m *pomMachine) top() (pomElement, pomElement) {
	n := len(m.stack)
	if n < 2 {
		return pomNone, pomNone
	}
	return m.stack[n-1], m.stack[n-2]
}

func (m *pomMachine) text(value string) {
	current, parent := m.top()

	switch {
	case parent == pomProject:
		m.projectText(current, value)
	case parent == pomSCM && current == pomURL:
		m.record.SCMURL = stripSpace(value)
	case parent == pomSCM && current == pomConnection:
		m.record.SCMConnection = stripSpace(value)
	}
}

func (m *pomMachine) projectText(current pomElement, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}

	switch current {
	case pomGroupID:
		m.record.GroupID = trimmed
	case pomArtifactID:
		m.record.ArtifactID = trimmed
	case pomName:
		m.record.Name = trimmed
	case pomVersion:
		m.record.Version = trimmed
	case pomDescription:
		m.record.Description = trimmed
	case pomURL:
		m.record.ProjectURL = stripSpace(value)
	}
}

// reset returns the machine to its initial state at document end.
func (m *pomMachine) reset() {
	m.stack = []pomElement{pomNone}
}

func stripSpace(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ExtractPOM reads a version's .pom file. Only project-level coordinates are
// taken; a groupId inside <parent> or <dependency> is ignored.
func ExtractPOM(ctx context.Context, r io.Reader) (*entity.VersionPom, error) {
	m := newPOMMachine()
	err := walk(ctx, r, m)
	m.reset()
	return &m.record, err
}
