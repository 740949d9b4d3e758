package crawler

import (
	"context"
	"path/filepath"
	"testing"

	"specpilot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfig_FirstCandidateWins(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"tsconfig.build.json": "{}",
		"tsconfig.app.json":   "{}",
	})
	assert.Equal(t, filepath.Join(root, "tsconfig.app.json"), FindConfig(root))

	empty := t.TempDir()
	assert.Equal(t, "", FindConfig(empty))
}

func TestLoadProject_WithConfig(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"tsconfig.json":             "{}",
		".gitignore":                "generated/\n",
		"src/users.service.ts":      "export class UsersService {}",
		"lib/shared.ts":             "export class Shared {}",
		"types/global.d.ts":         "declare class Ambient {}",
		"node_modules/pkg/index.ts": "export class Vendor {}",
		"generated/client.ts":       "export class Generated {}",
	})

	c := NewCrawler(nil)
	p, err := c.LoadProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "tsconfig.json"), p.ConfigPath)
	require.Len(t, p.Files(), 2)
	assert.Equal(t, filepath.Join(root, "src", "users.service.ts"), p.Files()[0].Path)
	assert.Equal(t, filepath.Join(root, "lib", "shared.ts"), p.Files()[1].Path)
	assert.Empty(t, p.Declarations("Vendor"))
	assert.Empty(t, p.Declarations("Generated"))
	assert.Empty(t, p.Declarations("Ambient"))
}

func TestLoadProject_FallbackScansSrcOnly(t *testing.T) {
	root := testutil.WriteProject(t, map[string]string{
		"src/a.ts":      "export class A {}",
		"src/deep/b.ts": "export class B {}",
		"scripts/c.ts":  "export class C {}",
	})

	p, err := NewCrawler(nil).LoadProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "", p.ConfigPath)
	assert.Len(t, p.Files(), 2)
	assert.NotEmpty(t, p.Declarations("B"))
	assert.Empty(t, p.Declarations("C"))
}

func TestLoadProject_MissingRoot(t *testing.T) {
	_, err := NewCrawler(nil).LoadProject(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadProject_NoSources(t *testing.T) {
	p, err := NewCrawler(nil).LoadProject(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, p.Files())
}
