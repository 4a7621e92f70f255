package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0644))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	require.Equal(t, root, FindProjectRoot(nested))
	require.Equal(t, root, FindProjectRoot(root))

	// go.mod가 없으면 시작 디렉토리 반환
	lonely := t.TempDir()
	require.Equal(t, lonely, FindProjectRoot(lonely))
}
