package git

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorcelain(t *testing.T) {
	out := " M internal/app/server.go\n" +
		"M  cmd/main.go\n" +
		"A  internal/feature/export.go\n" +
		" D legacy/old.go\n" +
		"R  docs/a.md -> docs/b.md\n" +
		"?? notes.txt\n" +
		"\n"

	files := parsePorcelain(out)
	require.Len(t, files, 6)

	want := []FileChange{
		{Path: "internal/app/server.go", Kind: KindModified},
		{Path: "cmd/main.go", Kind: KindModified},
		{Path: "internal/feature/export.go", Kind: KindAdded},
		{Path: "legacy/old.go", Kind: KindDeleted},
		{Path: "docs/b.md", Kind: KindRenamed},
		{Path: "notes.txt", Kind: KindUntracked},
	}
	assert.Equal(t, want, files)
}

func TestParsePorcelainEmpty(t *testing.T) {
	assert.Empty(t, parsePorcelain(""))
	assert.Empty(t, parsePorcelain("\n\n"))
}

func TestParsePorcelainQuotedPath(t *testing.T) {
	files := parsePorcelain("?? \"file with spaces.txt\"\n")
	require.Len(t, files, 1)
	assert.Equal(t, "file with spaces.txt", files[0].Path)
	assert.Equal(t, KindUntracked, files[0].Kind)
}

func TestChangesHelpers(t *testing.T) {
	c := &Changes{
		FileCount: 3,
		Files: []FileChange{
			{Path: "a.go", Kind: KindAdded},
			{Path: "b.go", Kind: KindModified},
			{Path: "c.go", Kind: KindAdded},
		},
	}
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, c.Paths())
	assert.Equal(t, 2, c.CountKind(KindAdded))
	assert.Equal(t, 1, c.CountKind(KindModified))
	assert.Equal(t, 0, c.CountKind(KindDeleted))
}

func TestParseLog(t *testing.T) {
	out := "abc1234\t1714500000\tfeat: add session store\n" +
		"def5678\t1714400000\tfix: handle empty branch\n" +
		"garbage line\n"

	commits := parseLog(out)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc1234", commits[0].Hash)
	assert.Equal(t, time.Unix(1714500000, 0), commits[0].Time)
	assert.Equal(t, "feat: add session store", commits[0].Subject)
	assert.Equal(t, "fix: handle empty branch", commits[1].Subject)
}
