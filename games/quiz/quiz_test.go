/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const capitalsYAML = `title: Capitals
questions:
  - text: Capital of France?
    options: [Berlin, Madrid, Paris, Rome]
    correct_answer: 2
    time_limit: 15
  - text: Capital of Japan?
    options: [Kyoto, Tokyo, Osaka, Nara]
    correct_answer: 1
`

func TestQuizNormalize(t *testing.T) {
	cases := map[string]struct {
		in   Question
		want Question
	}{
		"complete question is kept": {
			in:   Question{ID: 7, Text: "Q", Options: []string{"a", "b"}, Correct: 1, TimeLimit: 10},
			want: Question{ID: 0, Text: "Q", Options: []string{"a", "b"}, Correct: 1, TimeLimit: 10},
		},
		"missing text": {
			in:   Question{Options: []string{"a"}, TimeLimit: 10},
			want: Question{Text: "Question 1", Options: []string{"a"}, TimeLimit: 10},
		},
		"correct index out of range": {
			in:   Question{Text: "Q", Options: []string{"a", "b"}, Correct: 4, TimeLimit: 10},
			want: Question{Text: "Q", Options: []string{"a", "b"}, Correct: 0, TimeLimit: 10},
		},
		"negative correct index": {
			in:   Question{Text: "Q", Options: []string{"a", "b"}, Correct: -1, TimeLimit: 10},
			want: Question{Text: "Q", Options: []string{"a", "b"}, Correct: 0, TimeLimit: 10},
		},
		"missing time limit": {
			in:   Question{Text: "Q", Options: []string{"a"}},
			want: Question{Text: "Q", Options: []string{"a"}, TimeLimit: DefaultTimeLimit},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Quiz{Title: "T", Questions: []Question{tc.in}}.normalize()

			require.Len(t, got.Questions, 1)
			assert.Equal(t, tc.want, got.Questions[0])
		})
	}
}

func TestQuizNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Untitled Quiz", Quiz{Title: "  "}.normalize().Title)
	assert.Equal(t, "Trivia", Quiz{Title: " Trivia "}.normalize().Title)
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "capitals.yaml"), []byte(capitalsYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yml"), []byte("title: Nothing\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# not a quiz\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	lib, err := LoadLibrary(dir)
	require.NoError(t, err)

	assert.Equal(t, []LibraryEntry{
		{ID: "capitals", Title: "Capitals", Questions: 2},
		{ID: "empty", Title: "Nothing", Questions: 0},
	}, lib.List())

	q, ok := lib.Get("capitals")
	require.True(t, ok)
	assert.Equal(t, 2, q.Questions[0].Correct)
	assert.Equal(t, 15, q.Questions[0].TimeLimit)
	assert.Equal(t, DefaultTimeLimit, q.Questions[1].TimeLimit)
	assert.Equal(t, 1, q.Questions[1].ID)

	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestLoadLibraryErrors(t *testing.T) {
	_, err := LoadLibrary(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("questions: [\n"), 0o644))

	_, err = LoadLibrary(dir)
	assert.ErrorContains(t, err, "broken.yaml")
}

func TestEmptyLibrary(t *testing.T) {
	lib, err := LoadLibrary("")
	require.NoError(t, err)
	assert.Empty(t, lib.List())

	var none *Library
	assert.Empty(t, none.List())
	_, ok := none.Get("capitals")
	assert.False(t, ok)
}
