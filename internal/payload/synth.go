// Package payload synthesizes minimal valid request payloads from
// validation-annotated DTO classes.
package payload

import (
	"log/slog"
	"math"
	"strings"

	"specpilot/internal/cache"
	"specpilot/internal/extractor"
)

// DefaultMaxDepth bounds nested DTO synthesis.
const DefaultMaxDepth = 3

// Canonical literals for format validators.
const (
	SampleEmail = "user@example.com"
	SampleUUID  = "00000000-0000-4000-8000-000000000000"
	SampleDate  = "2020-01-01T00:00:00.000Z"
	SampleURL   = "https://example.com"
	SampleText  = "example"
)

// ClassFinder resolves classes and enums within a project root.
type ClassFinder interface {
	FindClass(root, name string) (cache.Lookup, bool)
	FindEnum(root, name string) (*extractor.Enum, bool)
}

// Synthesizer builds sample payloads.
type Synthesizer struct {
	finder ClassFinder
	logger *slog.Logger
}

func NewSynthesizer(finder ClassFinder, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{finder: finder, logger: logger}
}

// Synthesize returns a payload containing every required property of
// className. Nested classes deeper than maxDepth become empty objects; a
// negative maxDepth uses DefaultMaxDepth.
func (s *Synthesizer) Synthesize(root, className string, maxDepth int) (Value, bool) {
	lookup, ok := s.finder.FindClass(root, className)
	if !ok {
		return Value{}, false
	}
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	g := &gen{s: s, root: root, maxDepth: maxDepth}
	return g.class(lookup.Class, 0), true
}

// gen carries one synthesis run.
type gen struct {
	s        *Synthesizer
	root     string
	maxDepth int
}

// field is a property or array element being resolved.
type field struct {
	name  string
	decs  []extractor.Decorator // decorators applying to the value itself
	all   []extractor.Decorator // every decorator, for element extraction
	typ   string
	src   []byte
	depth int
}

type rule func(g *gen, f field) (Value, bool)

// Resolution order matters: format validators pre-empt the generic
// string check, and arrays are decided before nested classes.
var propertyRules, elementRules []rule

// nestedRule reaches gen.class, which reads propertyRules.
func init() {
	propertyRules = []rule{formatRule, scalarRule, closedRule, arrayRule, nestedRule, fallbackRule}
	elementRules = []rule{formatRule, scalarRule, closedRule, nestedRule, fallbackRule}
}

func (g *gen) class(cls *extractor.Class, depth int) Value {
	var fields []Field
	for _, p := range g.properties(cls) {
		if !required(p) {
			continue
		}
		src := p.File.Source
		f := field{name: p.Name, decs: propertyDecorators(p.Decorators, src), all: p.Decorators, typ: p.Type, src: src, depth: depth}
		fields = append(fields, Field{Key: p.Name, Value: g.resolve(propertyRules, f)})
	}
	return Object(fields...)
}

type ownedProperty struct {
	extractor.Property
	File *extractor.SourceFile
}

// properties returns inherited properties first, overridden by the class's own.
func (g *gen) properties(cls *extractor.Class) []ownedProperty {
	var chain []*extractor.Class
	seen := map[string]bool{}
	for c := cls; c != nil && !seen[c.Name]; {
		seen[c.Name] = true
		chain = append([]*extractor.Class{c}, chain...)
		base := c.Extends()
		if base == "" {
			break
		}
		lookup, ok := g.s.finder.FindClass(g.root, base)
		if !ok {
			break
		}
		c = lookup.Class
	}

	var out []ownedProperty
	index := map[string]int{}
	for _, c := range chain {
		for _, p := range c.Properties() {
			op := ownedProperty{Property: p, File: c.File}
			if i, ok := index[p.Name]; ok {
				out[i] = op
				continue
			}
			index[p.Name] = len(out)
			out = append(out, op)
		}
	}
	return out
}

// required reports whether a property must be present in a minimal payload.
func required(p ownedProperty) bool {
	switch {
	case extractor.HasDecorator(p.Decorators, "IsOptional"):
		return false
	case extractor.IsNullable(p.Type):
		return false
	case p.Optional, p.Initializer:
		return false
	}
	return true
}

func (g *gen) resolve(rules []rule, f field) Value {
	for _, r := range rules {
		if v, ok := r(g, f); ok {
			return v
		}
	}
	return String(SampleText)
}

func formatRule(_ *gen, f field) (Value, bool) {
	switch {
	case has(f, "IsEmail"):
		return String(SampleEmail), true
	case has(f, "IsUUID"):
		return String(SampleUUID), true
	case has(f, "IsDateString", "IsISO8601", "IsDate"):
		return String(SampleDate), true
	case has(f, "IsUrl", "IsURL"):
		return String(SampleURL), true
	}
	return Value{}, false
}

func scalarRule(_ *gen, f field) (Value, bool) {
	switch {
	case has(f, "IsBoolean"):
		return Bool(true), true
	case has(f, "IsInt"):
		return Number(boundedNumber(f, true)), true
	case has(f, "IsNumber", "IsNumberString"):
		n := boundedNumber(f, false)
		if has(f, "IsNumberString") {
			return String(formatNumber(n)), true
		}
		return Number(n), true
	case has(f, "IsString"):
		return String(boundedString(f)), true
	}
	return Value{}, false
}

func closedRule(g *gen, f field) (Value, bool) {
	if d, ok := extractor.FindDecorator(f.decs, "IsEnum"); ok {
		if v, ok := g.enumArg(d, f.src); ok {
			return v, true
		}
	}
	if d, ok := extractor.FindDecorator(f.decs, "IsIn"); ok {
		if lit, ok := extractor.Eval(d.Arg(0), f.src); ok {
			if items, ok := lit.([]any); ok && len(items) > 0 {
				return FromLiteral(items[0]), true
			}
		}
	}
	if _, isArray := extractor.ElementType(f.typ); isArray {
		return Value{}, false
	}
	if name := extractor.TypeSymbolName(f.typ); name != "" && !builtinTypes[name] {
		if e, ok := g.s.finder.FindEnum(g.root, name); ok && len(e.Members) > 0 {
			return FromLiteral(e.Members[0].Value), true
		}
	}
	members := extractor.NonNullMembers(f.typ)
	if len(members) > 0 {
		if lit, ok := extractor.LiteralType(members[0]); ok {
			return FromLiteral(lit), true
		}
	}
	return Value{}, false
}

func (g *gen) enumArg(d extractor.Decorator, src []byte) (Value, bool) {
	arg := d.Arg(0)
	if arg == nil {
		return Value{}, false
	}
	if arg.Type() == "identifier" || arg.Type() == "member_expression" {
		name := extractor.TypeSymbolName(extractor.Content(arg, src))
		if e, ok := g.s.finder.FindEnum(g.root, name); ok && len(e.Members) > 0 {
			return FromLiteral(e.Members[0].Value), true
		}
		return Value{}, false
	}
	// IsEnum also accepts a plain object literal.
	if lit, ok := extractor.Eval(arg, src); ok {
		if obj, ok := lit.(extractor.ObjectLiteral); ok && len(obj.Keys) > 0 {
			return FromLiteral(obj.Values[obj.Keys[0]]), true
		}
	}
	return Value{}, false
}

func arrayRule(g *gen, f field) (Value, bool) {
	elemType, arrayTyped := extractor.ElementType(f.typ)
	if !arrayTyped && !has(f, "IsArray", "ArrayMinSize", "ArrayMaxSize", "ArrayNotEmpty") {
		return Value{}, false
	}

	n := 1
	if max, ok := decoratorLength(f, "ArrayMaxSize", 0); ok && float64(n) > max {
		n = int(math.Max(0, math.Floor(max)))
	}
	if min, ok := decoratorLength(f, "ArrayMinSize", 0); ok && float64(n) < min {
		n = int(math.Ceil(min))
	}
	if has(f, "ArrayNotEmpty") && n < 1 {
		n = 1
	}

	elemDecs := elementDecorators(f.all, f.src)
	elem := field{name: f.name, decs: elemDecs, all: elemDecs, typ: elemType, src: f.src, depth: f.depth}
	items := make([]Value, n)
	for i := range items {
		items[i] = g.resolve(elementRules, elem)
	}
	return Array(items...), true
}

// elementDecorators keeps the validators that apply per element: those
// declared with { each: true } plus the nested-type pair.
func elementDecorators(decs []extractor.Decorator, src []byte) []extractor.Decorator {
	var out []extractor.Decorator
	for _, d := range decs {
		if d.Name == "Type" || d.Name == "ValidateNested" || eachOption(d, src) {
			out = append(out, d)
		}
	}
	return out
}

// propertyDecorators drops the validators declared with { each: true }.
func propertyDecorators(decs []extractor.Decorator, src []byte) []extractor.Decorator {
	var out []extractor.Decorator
	for _, d := range decs {
		if !eachOption(d, src) {
			out = append(out, d)
		}
	}
	return out
}

func eachOption(d extractor.Decorator, src []byte) bool {
	for _, arg := range d.Args {
		lit, ok := extractor.Eval(arg, src)
		if !ok {
			continue
		}
		if obj, ok := lit.(extractor.ObjectLiteral); ok {
			if each, _ := obj.Get("each"); each == true {
				return true
			}
		}
	}
	return false
}

func nestedRule(g *gen, f field) (Value, bool) {
	name := ""
	if has(f, "ValidateNested") {
		if d, ok := extractor.FindDecorator(f.decs, "Type"); ok {
			name = typeFactoryName(d, f.src)
		}
	}
	if name == "" {
		name = extractor.TypeSymbolName(f.typ)
		if _, isArray := extractor.ElementType(f.typ); isArray {
			name = ""
		}
	}
	if name == "" || builtinTypes[name] {
		return Value{}, false
	}

	lookup, ok := g.s.finder.FindClass(g.root, name)
	if !ok {
		g.s.logger.Debug("nested type not found", "property", f.name, "type", name)
		return Value{}, false
	}
	if f.depth+1 > g.maxDepth {
		return Object(), true
	}
	return g.class(lookup.Class, f.depth+1), true
}

// typeFactoryName returns the class named by a @Type(() => Cls) factory.
func typeFactoryName(d extractor.Decorator, src []byte) string {
	arg := d.Arg(0)
	if arg == nil || arg.Type() != "arrow_function" {
		return ""
	}
	body := arg.ChildByFieldName("body")
	for body != nil && body.Type() == "parenthesized_expression" && body.NamedChildCount() > 0 {
		body = body.NamedChild(0)
	}
	if body == nil || (body.Type() != "identifier" && body.Type() != "member_expression") {
		return ""
	}
	return extractor.TypeSymbolName(extractor.Content(body, src))
}

func fallbackRule(_ *gen, f field) (Value, bool) {
	members := extractor.NonNullMembers(f.typ)
	t := ""
	if len(members) > 0 {
		t = members[0]
	}
	switch t {
	case "string", "String":
		return String(boundedString(f)), true
	case "number", "Number", "bigint":
		return Number(boundedNumber(f, false)), true
	case "boolean", "Boolean":
		return Bool(true), true
	case "Date":
		return String(SampleDate), true
	}
	return String(SampleText), true
}

// builtinTypes never name project classes.
var builtinTypes = map[string]bool{
	"string": true, "number": true, "boolean": true, "bigint": true, "any": true,
	"unknown": true, "object": true, "never": true, "void": true,
	"String": true, "Number": true, "Boolean": true, "Object": true, "Date": true,
	"Array": true, "ReadonlyArray": true, "Record": true, "Map": true, "Set": true,
	"Promise": true, "Partial": true, "Buffer": true,
}

func has(f field, names ...string) bool {
	return extractor.HasDecorator(f.decs, names...)
}

// boundedNumber picks 1 and clamps it into [Min, Max]. When the bounds
// conflict the minimum wins.
func boundedNumber(f field, integer bool) float64 {
	v := 1.0
	min, hasMin := decoratorNumber(f, "Min", 0)
	max, hasMax := decoratorNumber(f, "Max", 0)
	if has(f, "IsPositive") && (!hasMin || min <= 0) {
		min, hasMin = smallestPositive(integer), true
	}
	if has(f, "IsNegative") && (!hasMax || max >= 0) {
		max, hasMax = -smallestPositive(integer), true
	}
	if integer {
		min, max = math.Ceil(min), math.Floor(max)
	}
	if hasMax && v > max {
		v = max
	}
	if hasMin && v < min {
		v = min
	}
	return v
}

func smallestPositive(integer bool) float64 {
	if integer {
		return 1
	}
	return 0.1
}

// boundedString returns a string whose length satisfies the declared
// length validators, with the minimum winning over an unreachable maximum.
func boundedString(f field) string {
	n := len(SampleText)
	minLen, hasMin := decoratorLength(f, "MinLength", 0)
	maxLen, hasMax := decoratorLength(f, "MaxLength", 0)
	if lmin, ok := decoratorLength(f, "Length", 0); ok && (!hasMin || lmin > minLen) {
		minLen, hasMin = lmin, true
	}
	if lmax, ok := decoratorLength(f, "Length", 1); ok && (!hasMax || lmax < maxLen) {
		maxLen, hasMax = lmax, true
	}
	if has(f, "IsNotEmpty") && (!hasMin || minLen < 1) {
		minLen, hasMin = 1, true
	}

	if hasMax && float64(n) > maxLen {
		n = int(math.Max(0, math.Floor(maxLen)))
	}
	if hasMin && float64(n) < minLen {
		n = int(math.Ceil(minLen))
	}
	if n <= len(SampleText) {
		return SampleText[:n]
	}
	return SampleText + strings.Repeat("x", n-len(SampleText))
}

// decoratorNumber evaluates the i-th argument of the named decorator.
// Malformed arguments read as absent.
func decoratorNumber(f field, name string, i int) (float64, bool) {
	d, ok := extractor.FindDecorator(f.decs, name)
	if !ok {
		return 0, false
	}
	return extractor.EvalNumber(d.Arg(i), f.src)
}

// maxSynthLen caps every synthesized string length and array size.
const maxSynthLen = 4096

// decoratorLength reads a size bound. Non-finite values read as absent and
// finite ones are clamped into [0, maxSynthLen].
func decoratorLength(f field, name string, i int) (float64, bool) {
	v, ok := decoratorNumber(f, name, i)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return math.Min(math.Max(v, 0), maxSynthLen), true
}

func formatNumber(n float64) string {
	return Number(n).scalarJSON()
}
