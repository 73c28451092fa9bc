package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveTreeDeletesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "a", "b", "f.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(target, "top.txt"), []byte("y"), 0644))

	require.NoError(t, RemoveTree(target))

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveTreeMissingPathIsNoop(t *testing.T) {
	assert.NoError(t, RemoveTree(filepath.Join(t.TempDir(), "never-existed")))
}

func TestRemoveTreeDoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()

	// victim lives outside the tree being removed
	victim := filepath.Join(root, "victim")
	require.NoError(t, os.MkdirAll(victim, 0755))
	victimFile := filepath.Join(victim, "keep.txt")
	require.NoError(t, os.WriteFile(victimFile, []byte("precious"), 0644))

	target := filepath.Join(root, "tree")
	require.NoError(t, os.MkdirAll(target, 0755))
	require.NoError(t, os.Symlink(victim, filepath.Join(target, "link")))

	require.NoError(t, RemoveTree(target))

	// The link is gone with the tree, the link target is untouched
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
	content, err := os.ReadFile(victimFile)
	require.NoError(t, err)
	assert.Equal(t, "precious", string(content))
}

func TestRemoveTreeOnSymlinkRemovesOnlyTheLink(t *testing.T) {
	root := t.TempDir()

	victim := filepath.Join(root, "victim")
	require.NoError(t, os.MkdirAll(victim, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(victim, "keep.txt"), []byte("precious"), 0644))

	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(victim, link))

	require.NoError(t, RemoveTree(link))

	_, err := os.Lstat(link)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(victim, "keep.txt"))
	assert.NoError(t, err)
}
