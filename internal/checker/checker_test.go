package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fixrun/internal/ir"
)

func stub(kind string) Plugin {
	return Func{Name: kind, Fn: func(ctx context.Context, src Source) ([]ir.AssertionResult, error) {
		return []ir.AssertionResult{ir.Pass(src.ID, kind)}, nil
	}}
}

func TestRegistry_KindBySuffix(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("scss"), ".test.scss", ".spec.scss"))
	require.NoError(t, r.Register(stub("yaml"), ".test.yaml"))

	assert.Equal(t, "scss", r.KindOf("/w/a.test.scss", nil))
	assert.Equal(t, "scss", r.KindOf("/w/a.spec.scss", nil))
	assert.Equal(t, "yaml", r.KindOf("/w/a.test.yaml", nil))
	assert.Equal(t, "", r.KindOf("/w/c.bad", nil))
}

func TestRegistry_LongestSuffixWins(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("plain"), ".yaml"))
	require.NoError(t, r.Register(stub("special"), ".special.yaml"))

	assert.Equal(t, "special", r.KindOf("x.special.yaml", nil))
	assert.Equal(t, "plain", r.KindOf("x.yaml", nil))
}

func TestRegistry_MarkerOverridesSuffix(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("scss"), ".test.scss"))
	require.NoError(t, r.Register(stub("cue"), ".test.cue"))

	head := []byte("// fixrun:kind=cue\npackage x\n")
	assert.Equal(t, "cue", r.KindOf("/w/odd.test.scss", head))
}

func TestRegistry_MarkerEndsAtPunctuation(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("scss"), ".test.scss"))
	require.NoError(t, r.Register(stub("cue"), ".test.cue"))

	head := []byte("/* This fixture is fixrun:kind=cue. */\n")
	assert.Equal(t, "cue", r.KindOf("/w/odd.test.scss", head))

	p, err := r.Resolve(ir.FixturePath{Path: "/w/odd.test.scss", ID: "odd.test.scss"}, head)
	require.NoError(t, err)
	assert.Equal(t, "cue", p.Kind())
}

func TestRegistry_MarkerOutsideWindowIgnored(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("scss"), ".test.scss"))

	head := make([]byte, MarkerWindow+10)
	for i := range head {
		head[i] = ' '
	}
	head = append(head, []byte("fixrun:kind=cue")...)

	assert.Equal(t, "scss", r.KindOf("a.test.scss", head))
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("scss"), ".test.scss"))

	p, err := r.Resolve(ir.FixturePath{ID: "a.test.scss", Path: "/w/a.test.scss"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "scss", p.Kind())

	_, err = r.Resolve(ir.FixturePath{ID: "c.bad", Path: "/w/c.bad"}, nil)
	var unknown *UnknownKindError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "c.bad", unknown.FixtureID)
	assert.Contains(t, err.Error(), "no checker registered for fixture c.bad")

	_, err = r.Resolve(ir.FixturePath{ID: "d.test.scss", Path: "/w/d.test.scss"}, []byte("/* fixrun:kind=less */"))
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "less", unknown.Kind)
	assert.Contains(t, err.Error(), `kind "less"`)
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(stub(""), ".x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind is required")

	require.NoError(t, r.Register(stub("a"), ".x"))
	err = r.Register(stub("b"), ".x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already claimed")

	err = r.Register(stub("c"), "")
	require.Error(t, err)
}

func TestRegistry_Kinds(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("yaml")))
	require.NoError(t, r.Register(stub("cue")))
	require.NoError(t, r.Register(stub("scss")))

	assert.Equal(t, []string{"cue", "scss", "yaml"}, r.Kinds())
}
