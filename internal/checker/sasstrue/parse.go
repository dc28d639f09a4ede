package sasstrue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/roach88/fixrun/internal/ir"
)

// Comment tokens emitted by True in its CSS report.
const (
	moduleToken    = "Module: "
	testToken      = "Test: "
	passToken      = "✔ "
	failToken      = "✖ FAILED: "
	assertToken    = "ASSERT: "
	endAssertToken = "END_ASSERT"
	detailToken    = "- "
)

// failPattern splits "[assert-equal] description".
var failPattern = regexp.MustCompile(`^\[([^\]]*)\]\s*(.*)$`)

// detailKeys are the failure detail lines carried into the message.
var detailKeys = []string{"Output:", "Expected:", "Details:"}

type block int

const (
	noBlock block = iota
	outputBlock
	expectedBlock
	containedBlock
)

var blockStart = map[string]block{
	"OUTPUT":    outputBlock,
	"EXPECTED":  expectedBlock,
	"CONTAINED": containedBlock,
}

var blockEnd = map[string]block{
	"END_OUTPUT":    outputBlock,
	"END_EXPECTED":  expectedBlock,
	"END_CONTAINED": containedBlock,
}

type trueTest struct {
	name     string
	failures []string
}

type outputAssert struct {
	desc      string
	output    strings.Builder
	expected  strings.Builder
	contained bool
}

type parser struct {
	fixtureID string
	modules   []string

	test   *trueTest
	assert *outputAssert
	block  block

	// detailing is set while detail lines extend the last failure.
	detailing bool

	results []ir.AssertionResult
}

// ParseCSS reads the True report embedded in compiled CSS.
func ParseCSS(fixtureID, css string) ([]ir.AssertionResult, error) {
	p := &parser{fixtureID: fixtureID}
	s := scanner.New(css)
	for {
		tok := s.Next()
		switch tok.Type {
		case scanner.TokenEOF:
			p.closeTest()
			if p.results == nil {
				return []ir.AssertionResult{}, nil
			}
			return p.results, nil
		case scanner.TokenError:
			return nil, fmt.Errorf("parse css: line %d column %d: %q", tok.Line, tok.Column, tok.Value)
		case scanner.TokenComment:
			p.comment(commentText(tok.Value))
		default:
			p.css(tok)
		}
	}
}

func commentText(raw string) string {
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")
	return strings.TrimSpace(raw)
}

func (p *parser) comment(text string) {
	if b, ok := blockStart[text]; ok && p.assert != nil {
		p.block = b
		if b == containedBlock {
			p.assert.contained = true
		}
		return
	}
	if b, ok := blockEnd[text]; ok && p.block == b {
		p.block = noBlock
		return
	}
	if p.block != noBlock {
		return
	}

	switch {
	case strings.HasPrefix(text, "#"):
		p.closeTest()
		p.module(text)
	case strings.HasPrefix(text, testToken):
		p.closeTest()
		p.test = &trueTest{name: strings.TrimSpace(strings.TrimPrefix(text, testToken))}
	case strings.HasPrefix(text, passToken):
		p.detailing = false
	case strings.HasPrefix(text, failToken):
		p.fail(strings.TrimPrefix(text, failToken))
	case strings.HasPrefix(text, assertToken):
		p.closeAssert()
		p.detailing = false
		p.assert = &outputAssert{desc: strings.TrimSpace(strings.TrimPrefix(text, assertToken))}
	case text == endAssertToken:
		p.closeAssert()
	case strings.HasPrefix(text, detailToken):
		p.detail(strings.TrimPrefix(text, detailToken))
	}
}

// module handles "# Module: name"; the number of leading '#' is the
// nesting depth.
func (p *parser) module(text string) {
	depth := len(text) - len(strings.TrimLeft(text, "#"))
	rest := strings.TrimSpace(text[depth:])
	if !strings.HasPrefix(rest, moduleToken) {
		return
	}
	name := strings.TrimSpace(strings.TrimPrefix(rest, moduleToken))
	if depth-1 < len(p.modules) {
		p.modules = p.modules[:depth-1]
	}
	p.modules = append(p.modules, name)
}

func (p *parser) fail(text string) {
	if p.test == nil {
		return
	}
	msg := strings.TrimSpace(text)
	if m := failPattern.FindStringSubmatch(msg); m != nil {
		msg = fmt.Sprintf("%s (%s)", m[2], m[1])
	}
	p.test.failures = append(p.test.failures, msg)
	p.detailing = true
}

func (p *parser) detail(text string) {
	if !p.detailing || p.test == nil {
		return
	}
	text = strings.TrimSpace(text)
	for _, key := range detailKeys {
		if strings.HasPrefix(text, key) {
			last := len(p.test.failures) - 1
			p.test.failures[last] += "\n" + text
			return
		}
	}
}

func (p *parser) css(tok *scanner.Token) {
	if p.assert == nil {
		return
	}
	switch p.block {
	case outputBlock:
		p.assert.output.WriteString(tok.Value)
	case expectedBlock, containedBlock:
		p.assert.expected.WriteString(tok.Value)
	}
}

func (p *parser) closeAssert() {
	a := p.assert
	if a == nil {
		return
	}
	p.assert = nil
	p.block = noBlock
	if p.test == nil {
		return
	}

	output := normalizeCSS(a.output.String())
	expected := normalizeCSS(a.expected.String())

	ok := output == expected
	verb := "Expected"
	if a.contained {
		ok = strings.Contains(output, expected)
		verb = "Contained"
	}
	if ok {
		return
	}
	p.test.failures = append(p.test.failures,
		fmt.Sprintf("%s\nOutput: %s\n%s: %s", a.desc, output, verb, expected))
}

func (p *parser) closeTest() {
	p.closeAssert()
	t := p.test
	if t == nil {
		return
	}
	p.test = nil
	p.detailing = false

	name := t.name
	if len(p.modules) > 0 {
		name = strings.Join(p.modules, " :: ") + " :: " + t.name
	}

	if len(t.failures) == 0 {
		p.results = append(p.results, ir.Pass(p.fixtureID, name))
		return
	}
	p.results = append(p.results, ir.Fail(p.fixtureID, name, strings.Join(t.failures, "\n\n")))
}

// normalizeCSS collapses whitespace so that formatting differences between
// the output and expected blocks do not matter.
func normalizeCSS(css string) string {
	s := strings.Join(strings.Fields(css), " ")
	for _, punct := range []string{"{", "}", ";", ":", ","} {
		s = strings.ReplaceAll(s, " "+punct, punct)
		s = strings.ReplaceAll(s, punct+" ", punct)
	}
	return s
}
