package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/roach88/fixrun/internal/ir"
)

// JUnit writes a JUnit XML document when the run finishes. Each fixture is
// a testsuite and each assertion a testcase. Synthetic results are
// reported as errors, real failures as failures.
type JUnit struct {
	// Path is the output file. Parent directories are created.
	Path string

	// Fs is where Path is written. Defaults to the OS file system.
	Fs afero.Fs

	// W is used instead of Path when set.
	W io.Writer

	// Name is the testsuites name. Defaults to "fixrun".
	Name string
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Errors   int          `xml:"errors,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Classname string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// Describe implements Reporter.
func (j *JUnit) Describe(ir.FixturePath) Group { return nopGroup{} }

// Finish implements Reporter.
func (j *JUnit) Finish(summary *ir.RunSummary) error {
	doc := buildJUnit(j.name(), summary)

	if j.W != nil {
		return writeJUnit(j.W, doc)
	}
	if j.Path == "" {
		return fmt.Errorf("junit report: no output path")
	}

	fs := j.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	f, err := fs.Create(j.Path)
	if err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	if err := writeJUnit(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	return nil
}

func (j *JUnit) name() string {
	if j.Name == "" {
		return "fixrun"
	}
	return j.Name
}

func buildJUnit(name string, summary *ir.RunSummary) junitSuites {
	doc := junitSuites{
		Name:   name,
		Suites: make([]junitSuite, 0, len(summary.Fixtures)),
	}
	for _, fr := range summary.Fixtures {
		suite := junitSuite{
			Name:  fr.FixtureID,
			Tests: len(fr.Assertions),
			Cases: make([]junitCase, 0, len(fr.Assertions)),
		}
		for _, a := range fr.Assertions {
			c := junitCase{Classname: fr.FixtureID, Name: a.Name}
			if !a.Passed {
				p := &junitProblem{Message: firstLine(a.Message), Body: a.Message}
				if a.Synthetic {
					c.Error = p
					suite.Errors++
				} else {
					c.Failure = p
					suite.Failures++
				}
			}
			suite.Cases = append(suite.Cases, c)
		}
		doc.Tests += suite.Tests
		doc.Failures += suite.Failures
		doc.Errors += suite.Errors
		doc.Suites = append(doc.Suites, suite)
	}
	return doc
}

func writeJUnit(w io.Writer, doc junitSuites) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("junit report: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
