package isolation_test

import (
	"errors"
	"testing"

	"github.com/raphi011/pinpoint/internal/isolation"
	"github.com/raphi011/pinpoint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calcClass(inits *int) model.TestClass {
	return model.TestClass{
		Name: "Calc",
		Init: func() { *inits++ },
		Methods: map[string]model.TestFunc{
			"addsTwoNumbers":      func(t model.TB) {},
			"subtractsTwoNumbers": func(t model.TB) {},
		},
	}
}

func TestLoadReturnsClassDefinedByLoader(t *testing.T) {
	var inits int

	l, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)

	c, err := l.Load("Calc")
	require.NoError(t, err)

	assert.Equal(t, "Calc", c.Name())
	assert.Same(t, l, c.Loader())
	assert.Equal(t, []string{"addsTwoNumbers", "subtractsTwoNumbers"}, c.Methods())
	assert.False(t, isolation.ViolatesIsolation(c, l))
}

func TestStaticInitRunsOncePerLoader(t *testing.T) {
	var inits int

	l1, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)
	l2, err := isolation.NewLoader("c2", nil, calcClass(&inits))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = l1.Load("Calc")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inits, "expected init to run once in c1")

	_, err = l2.Load("Calc")
	require.NoError(t, err)
	assert.Equal(t, 2, inits, "expected init to run again in c2")
}

func TestSameNamedClassesInDifferentLoadersAreIndependent(t *testing.T) {
	var inits int

	l1, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)
	l2, err := isolation.NewLoader("c2", nil, calcClass(&inits))
	require.NoError(t, err)

	c1, err := l1.Load("Calc")
	require.NoError(t, err)
	c2, err := l2.Load("Calc")
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.True(t, isolation.ViolatesIsolation(c1, l2))
	assert.True(t, isolation.ViolatesIsolation(c2, l1))
}

func TestParentDelegatedClassViolatesChildIsolation(t *testing.T) {
	var inits int

	parent, err := isolation.NewLoader("system", nil, calcClass(&inits))
	require.NoError(t, err)
	child, err := isolation.NewLoader("mutant-1", parent)
	require.NoError(t, err)

	c, err := child.Load("Calc")
	require.NoError(t, err)

	assert.Same(t, parent, c.Loader())
	assert.True(t, isolation.ViolatesIsolation(c, child))
	assert.False(t, isolation.ViolatesIsolation(c, parent))
	assert.Empty(t, child.Classes())
}

func TestViolatesIsolationWithMissingValues(t *testing.T) {
	var inits int

	l, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)
	c, err := l.Load("Calc")
	require.NoError(t, err)

	assert.True(t, isolation.ViolatesIsolation(nil, l))
	assert.True(t, isolation.ViolatesIsolation(c, nil))
}

func TestDefineRejectsDuplicatesAndEmptyNames(t *testing.T) {
	var inits int

	l, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)

	_, err = l.Define(calcClass(&inits))
	var dup model.DuplicateError
	assert.ErrorAs(t, err, &dup)

	_, err = l.Define(model.TestClass{})
	assert.Error(t, err)

	_, err = isolation.NewLoader("c2", nil, calcClass(&inits), calcClass(&inits))
	assert.ErrorAs(t, err, &dup)
}

func TestDefineCopiesMethodTable(t *testing.T) {
	def := model.TestClass{
		Name:    "Calc",
		Methods: map[string]model.TestFunc{"a": func(t model.TB) {}},
	}

	l, err := isolation.NewLoader("c1", nil, def)
	require.NoError(t, err)

	def.Methods["b"] = func(t model.TB) {}

	c, err := l.Load("Calc")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.Methods())
}

func TestLoadUnknownClass(t *testing.T) {
	l, err := isolation.NewLoader("c1", nil)
	require.NoError(t, err)

	_, err = l.Load("Missing")

	var notFound model.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Missing", notFound.Name)
}

func TestPanickingInitIsCached(t *testing.T) {
	cause := errors.New("static state broken")
	calls := 0

	l, err := isolation.NewLoader("c1", nil, model.TestClass{
		Name: "Broken",
		Init: func() {
			calls++
			panic(cause)
		},
	})
	require.NoError(t, err)

	_, err = l.Load("Broken")
	var initErr *isolation.InitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, cause)

	_, err = l.Load("Broken")
	assert.ErrorAs(t, err, &initErr)
	assert.Equal(t, 1, calls)
}

func TestClassesListsOwnDefinitionsSorted(t *testing.T) {
	l, err := isolation.NewLoader("c1", nil,
		model.TestClass{Name: "b.Second"},
		model.TestClass{Name: "a.First"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.First", "b.Second"}, l.Classes())
}

func TestDetectionFunc(t *testing.T) {
	var inits int

	l, err := isolation.NewLoader("c1", nil, calcClass(&inits))
	require.NoError(t, err)
	c, err := l.Load("Calc")
	require.NoError(t, err)

	always := isolation.DetectionFunc(func(*isolation.Class, *isolation.Loader) bool { return true })

	assert.True(t, always.FromDifferentLoader(c, l))
	assert.False(t, isolation.DefaultDetection().FromDifferentLoader(c, l))
}

func TestLoadLibraryMissingFile(t *testing.T) {
	_, err := isolation.LoadLibrary("/does/not/exist.so", nil)
	assert.Error(t, err)
}

func TestChildCannotShadowClassOfParent(t *testing.T) {
	var inits int

	parent, err := isolation.NewLoader("system", nil, calcClass(&inits))
	require.NoError(t, err)

	child, err := isolation.NewLoader("mutant-1", parent)
	require.NoError(t, err)

	_, err = child.Define(calcClass(&inits))
	assert.ErrorAs(t, err, &model.DuplicateError{})

	_, err = isolation.NewLoader("mutant-2", parent, calcClass(&inits))
	assert.ErrorAs(t, err, &model.DuplicateError{})

	assert.Empty(t, child.Classes())
}

func TestClassShadowedByLaterParentDefinitionViolatesIsolation(t *testing.T) {
	var inits int

	parent, err := isolation.NewLoader("system", nil)
	require.NoError(t, err)

	child, err := isolation.NewLoader("mutant-1", parent)
	require.NoError(t, err)

	own, err := child.Define(calcClass(&inits))
	require.NoError(t, err)
	assert.False(t, isolation.ViolatesIsolation(own, child))

	_, err = parent.Define(calcClass(&inits))
	require.NoError(t, err)

	resolved, err := child.Load("Calc")
	require.NoError(t, err)
	require.Same(t, parent, resolved.Loader())

	assert.True(t, isolation.ViolatesIsolation(own, child))
}
