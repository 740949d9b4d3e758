package extractor

import (
	"context"
	"path/filepath"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, source string) *SourceFile {
	t.Helper()
	ext, err := NewExtractor("typescript")
	require.NoError(t, err)
	sf, err := ext.ExtractFromSource(context.Background(), "inline.ts", []byte(source))
	require.NoError(t, err)
	return sf
}

func TestExtractor_ExtractFromFile(t *testing.T) {
	ext, err := NewExtractor("typescript")
	require.NoError(t, err)

	sf, err := ext.ExtractFromFile(filepath.Join("testdata", "sample.ts"))
	require.NoError(t, err)

	t.Run("Class Names", func(t *testing.T) {
		assert.Equal(t, []string{"CreateUserDto", "UsersService"}, sf.ClassNames())
	})

	t.Run("Imports", func(t *testing.T) {
		imports := sf.Imports()
		require.Len(t, imports, 6)
		assert.Equal(t, Import{Module: "@nestjs/common", Name: "Injectable", Local: "Injectable"}, imports[0])
		assert.Equal(t, Import{Module: "@nestjs/common", Name: "NotFoundException", Local: "NotFound"}, imports[1])
		assert.Equal(t, "./default", imports[5].Module)
		assert.Equal(t, "Default", imports[5].Local)
	})

	t.Run("Class Decorators", func(t *testing.T) {
		cls, ok := sf.Class("UsersService")
		require.True(t, ok)
		assert.True(t, HasDecorator(cls.Decorators, "Injectable"))
	})

	t.Run("Properties", func(t *testing.T) {
		cls, ok := sf.Class("CreateUserDto")
		require.True(t, ok)

		props := cls.Properties()
		require.Len(t, props, 4)

		assert.Equal(t, "email", props[0].Name)
		assert.Equal(t, "string", props[0].Type)
		assert.True(t, HasDecorator(props[0].Decorators, "IsEmail"))

		minLen, ok := FindDecorator(props[1].Decorators, "MinLength")
		require.True(t, ok)
		n, ok := EvalNumber(minLen.Arg(0), sf.Source)
		require.True(t, ok)
		assert.Equal(t, 6.0, n)

		assert.True(t, props[2].Optional)
		assert.True(t, HasDecorator(props[2].Decorators, "IsOptional"))

		assert.True(t, props[3].Initializer)
		assert.Equal(t, "number", props[3].Type)
	})

	t.Run("Constructor", func(t *testing.T) {
		cls, _ := sf.Class("UsersService")
		ctor, ok := cls.Constructor()
		require.True(t, ok)

		params := ctor.Params()
		require.Len(t, params, 2)
		assert.Equal(t, "repo", params[0].Name)
		assert.Equal(t, "Repository<User>", params[0].Type)
		assert.True(t, params[0].Property)
		assert.Equal(t, "config", params[1].Name)
		assert.False(t, params[1].Property)
		assert.True(t, HasDecorator(params[1].Decorators, "Inject"))
	})

	t.Run("Methods", func(t *testing.T) {
		cls, _ := sf.Class("UsersService")
		methods := cls.Methods()
		require.Len(t, methods, 2)

		m, ok := cls.Method("findOne")
		require.True(t, ok)
		assert.True(t, m.Async)
		assert.Equal(t, "Promise<User>", m.ReturnType())

		params := m.Params()
		require.Len(t, params, 2)
		assert.False(t, params[0].Optional)
		assert.True(t, params[1].Optional)
		assert.Equal(t, "boolean", params[1].Type)

		_, ok = cls.Method("constructor")
		assert.False(t, ok, "constructor is not a regular method")
		_, ok = cls.Method("missing")
		assert.False(t, ok)
	})

	t.Run("Enums", func(t *testing.T) {
		role, ok := sf.Enum("Role")
		require.True(t, ok)
		require.Len(t, role.Members, 2)
		assert.Equal(t, "admin", role.Members[0].Value)

		level, ok := sf.Enum("Level")
		require.True(t, ok)
		require.Len(t, level.Members, 3)
		assert.Equal(t, 0.0, level.Members[0].Value)
		assert.Equal(t, 10.0, level.Members[1].Value)
		assert.Equal(t, 11.0, level.Members[2].Value)
	})
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := NewExtractor("cobol")
	assert.Error(t, err)
}

func TestEval(t *testing.T) {
	sf := parseSource(t, `
const a = 'it\'s';
const b = [1, "two", true, null];
const c = { min: 1, 'max': 10 };
const d = -(4 + 2) * 3;
const e = 10 / 4;
const f = x + 1;
const g = 'a' + 'b';
`)

	values := map[string]*sitter.Node{}
	Walk(sf.Root(), func(n *sitter.Node) bool {
		if n.Type() == "variable_declarator" {
			values[sf.Text(n.ChildByFieldName("name"))] = n.ChildByFieldName("value")
		}
		return true
	})

	v, ok := Eval(values["a"], sf.Source)
	require.True(t, ok)
	assert.Equal(t, "it's", v)

	v, ok = Eval(values["b"], sf.Source)
	require.True(t, ok)
	assert.Equal(t, []any{1.0, "two", true, nil}, v)

	v, ok = Eval(values["c"], sf.Source)
	require.True(t, ok)
	obj := v.(ObjectLiteral)
	assert.Equal(t, []string{"min", "max"}, obj.Keys)
	max, _ := obj.Get("max")
	assert.Equal(t, 10.0, max)

	n, ok := EvalNumber(values["d"], sf.Source)
	require.True(t, ok)
	assert.Equal(t, -18.0, n)

	n, ok = EvalNumber(values["e"], sf.Source)
	require.True(t, ok)
	assert.Equal(t, 2.5, n)

	_, ok = Eval(values["f"], sf.Source)
	assert.False(t, ok, "non-literal operands degrade to absent")

	v, ok = Eval(values["g"], sf.Source)
	require.True(t, ok)
	assert.Equal(t, "ab", v)
}

func TestInLoopAndThrow(t *testing.T) {
	sf := parseSource(t, `
class A {
  run(items: string[]) {
    for (const i of items) {
      this.save(i);
    }
    throw new Error('x');
  }
}
`)
	cls, ok := sf.Class("A")
	require.True(t, ok)
	m, _ := cls.Method("run")

	var calls, news []*sitter.Node
	m.Walk(func(n *sitter.Node) bool {
		switch n.Type() {
		case "call_expression":
			calls = append(calls, n)
		case "new_expression":
			news = append(news, n)
		}
		return true
	})
	require.Len(t, calls, 1)
	require.Len(t, news, 1)

	assert.True(t, InLoop(calls[0], m.Body()))
	assert.False(t, InThrow(calls[0], m.Body()))
	assert.False(t, InLoop(news[0], m.Body()))
	assert.True(t, InThrow(news[0], m.Body()))
}

func TestProjectOrdering(t *testing.T) {
	a := parseSource(t, "export class Dup {}")
	a.Path = "/app/lib/dup.ts"
	b := parseSource(t, "export class Dup {}")
	b.Path = "/app/src/z/dup.ts"

	p := NewProject("/app", "", []*SourceFile{a, b})
	files := p.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "/app/src/z/dup.ts", files[0].Path, "src/ files come first")
	assert.Equal(t, []string{"/app/src/z/dup.ts", "/app/lib/dup.ts"}, p.Declarations("Dup"))
}
