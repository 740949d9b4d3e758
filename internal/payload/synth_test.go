package payload

import (
	"encoding/json"
	"testing"

	"specpilot/internal/cache"
	"specpilot/internal/crawler"
	"specpilot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dtoSource = `
import {
  IsEmail, IsString, MinLength, MaxLength, IsOptional, IsInt, IsBoolean, Min, Max,
  IsPositive, IsNegative, IsEnum, IsIn, IsArray, ArrayMinSize, ValidateNested, IsDateString,
  IsNumber, IsUUID,
} from 'class-validator';
import { Type } from 'class-transformer';

export enum Role {
  Admin = 'admin',
  User = 'user',
}

export class GeoDto {
  @IsNumber() @Min(-90) @Max(90) lat: number;
}

export class AddressDto {
  @IsString() street: string;

  @ValidateNested()
  @Type(() => GeoDto)
  geo: GeoDto;
}

export class BaseDto {
  @IsUUID() id: string;
}

export class CreateUserDto extends BaseDto {
  @IsEmail() email: string;
  @IsString() @MinLength(5) name: string;
  @IsOptional() @IsString() nickname: string;
  bio?: string;
  @IsString() note: string | null;
  @IsInt() age = 18;
  @IsBoolean() active: boolean;
  @IsInt() @Min(21) @Max(10) conflicting: number;
  @IsNumber() @IsPositive() score: number;
  @IsInt() @IsNegative() debt: number;
  @IsString() @MaxLength(3) code: string;
  @IsEnum(Role) role: Role;
  @IsIn(['red', 'blue']) color: string;
  status: 'draft' | 'published';
  level: Role;
  @IsArray() @ArrayMinSize(2) tags;
  @IsString({ each: true }) @MinLength(10, { each: true }) labels: string[];
  @ValidateNested({ each: true }) @Type(() => AddressDto) addresses: AddressDto[];
  @ValidateNested() @Type(() => AddressDto) home: AddressDto;
  @IsDateString() createdAt: string;
  @MinLength(2 * limit) weird: string;
}

export class SmallDto {
  @IsString() name: string;
  @IsInt() count: number;
  'x-key': string;
}

export class TreeNode {
  @ValidateNested() @Type(() => TreeNode) child: TreeNode;
}
`

func newSynth(t *testing.T) (*Synthesizer, string) {
	t.Helper()
	root := testutil.WriteProject(t, map[string]string{"src/dto.ts": dtoSource})
	return NewSynthesizer(cache.NewProjectCache(crawler.NewCrawler(nil), nil), nil), root
}

func TestSynthesize(t *testing.T) {
	s, root := newSynth(t)

	v, ok := s.Synthesize(root, "CreateUserDto", DefaultMaxDepth)
	require.True(t, ok)
	require.Equal(t, KindObject, v.Kind)

	get := func(key string) Value {
		t.Helper()
		f, ok := v.Get(key)
		require.True(t, ok, key)
		return f
	}

	t.Run("Optional properties are excluded", func(t *testing.T) {
		for _, key := range []string{"nickname", "bio", "note", "age"} {
			_, ok := v.Get(key)
			assert.False(t, ok, key)
		}
	})

	t.Run("Inherited properties come first", func(t *testing.T) {
		assert.Equal(t, "id", v.Fields[0].Key)
		assert.Equal(t, SampleUUID, get("id").Str)
	})

	t.Run("Formats", func(t *testing.T) {
		assert.Equal(t, SampleEmail, get("email").Str)
		assert.Equal(t, SampleDate, get("createdAt").Str)
	})

	t.Run("Scalars respect bounds", func(t *testing.T) {
		assert.GreaterOrEqual(t, len(get("name").Str), 5)
		assert.Equal(t, Bool(true), get("active"))
		assert.Equal(t, 21.0, get("conflicting").Num, "min wins over an unreachable max")
		assert.Greater(t, get("score").Num, 0.0)
		assert.Equal(t, -1.0, get("debt").Num)
		assert.Equal(t, "exa", get("code").Str)
	})

	t.Run("Closed values", func(t *testing.T) {
		assert.Equal(t, "admin", get("role").Str)
		assert.Equal(t, "red", get("color").Str)
		assert.Equal(t, "draft", get("status").Str)
		assert.Equal(t, "admin", get("level").Str)
	})

	t.Run("Arrays", func(t *testing.T) {
		tags := get("tags")
		require.Equal(t, KindArray, tags.Kind)
		require.Len(t, tags.Items, 2)
		assert.Equal(t, String(SampleText), tags.Items[0])

		labels := get("labels")
		require.Len(t, labels.Items, 1)
		assert.GreaterOrEqual(t, len(labels.Items[0].Str), 10)

		addresses := get("addresses")
		require.Len(t, addresses.Items, 1)
		street, ok := addresses.Items[0].Get("street")
		require.True(t, ok)
		assert.Equal(t, SampleText, street.Str)
	})

	t.Run("Nested", func(t *testing.T) {
		geo, ok := get("home").Get("geo")
		require.True(t, ok)
		lat, ok := geo.Get("lat")
		require.True(t, ok)
		assert.Equal(t, 1.0, lat.Num)
	})

	t.Run("Malformed argument falls back", func(t *testing.T) {
		assert.Equal(t, SampleText, get("weird").Str)
	})
}

func TestSynthesize_DepthBound(t *testing.T) {
	s, root := newSynth(t)

	v, ok := s.Synthesize(root, "CreateUserDto", 0)
	require.True(t, ok)
	home, _ := v.Get("home")
	assert.Equal(t, Object(), home)

	v, ok = s.Synthesize(root, "CreateUserDto", 1)
	require.True(t, ok)
	home, _ = v.Get("home")
	geo, ok := home.Get("geo")
	require.True(t, ok)
	assert.Equal(t, Object(), geo)

	v, ok = s.Synthesize(root, "TreeNode", 2)
	require.True(t, ok)
	assert.Equal(t, "{\n  child: {\n    child: {\n      child: {}\n    }\n  }\n}", v.Literal())
}

func TestSynthesize_NotFound(t *testing.T) {
	s, root := newSynth(t)
	_, ok := s.Synthesize(root, "MissingDto", DefaultMaxDepth)
	assert.False(t, ok)
}

func TestValue_LiteralAndJSON(t *testing.T) {
	s, root := newSynth(t)

	v, ok := s.Synthesize(root, "SmallDto", DefaultMaxDepth)
	require.True(t, ok)

	assert.Equal(t, "{\n  name: \"example\",\n  count: 1,\n  \"x-key\": \"example\"\n}", v.Literal())

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"example","count":1,"x-key":"example"}`, string(data))

	assert.Equal(t, "{}", Object().Literal())
	assert.Equal(t, `[1, "a", true, null]`, Array(Number(1), String("a"), Bool(true), Null()).Literal())
}

func TestSynthesize_OversizedBounds(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{"src/big.dto.ts": `
import { IsArray, ArrayMinSize, ArrayMaxSize, IsString, MinLength, MaxLength } from 'class-validator';

export class BigDto {
  @IsArray() @ArrayMinSize(1e20) items: string[];
  @IsString() @MinLength(1e20) name: string;
  @IsString() @MaxLength(-5) empty: string;
  @IsArray() @ArrayMaxSize(-1e20) none: string[];
  @IsString() @MinLength(1e10) @MaxLength(20) capped: string;
}
`})
	s := NewSynthesizer(cache.NewProjectCache(crawler.NewCrawler(nil), nil), nil)

	var v Value
	require.NotPanics(t, func() {
		var ok bool
		v, ok = s.Synthesize(root, "BigDto", DefaultMaxDepth)
		require.True(t, ok)
	})

	items, ok := v.Get("items")
	require.True(t, ok)
	assert.Len(t, items.Items, maxSynthLen)

	name, ok := v.Get("name")
	require.True(t, ok)
	assert.Len(t, name.Str, maxSynthLen)

	empty, _ := v.Get("empty")
	assert.Equal(t, "", empty.Str)

	none, _ := v.Get("none")
	assert.Empty(t, none.Items)

	capped, _ := v.Get("capped")
	assert.Len(t, capped.Str, maxSynthLen, "min wins over an unreachable max")
}

func TestRuleTables(t *testing.T) {
	require.Len(t, propertyRules, 6)
	require.Len(t, elementRules, 5)

	// arrays are decided by property rules only
	f := field{typ: "string[]"}
	_, ok := arrayRule(&gen{}, f)
	assert.True(t, ok)
}
