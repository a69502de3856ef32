package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/careerprep/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateBackupRestore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "careerprep.db")
	backup := filepath.Join(dir, "snapshot.db")
	restored := filepath.Join(dir, "restored.db")

	out, err := execute(t, "--db", dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	_, err = execute(t, "--db", dbPath, "migrate")
	require.NoError(t, err, "migrate is repeatable")

	out, err = execute(t, "--db", dbPath, "migrations")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_init")

	out, err = execute(t, "--db", dbPath, "backup", "--out", backup)
	require.NoError(t, err)
	assert.Contains(t, out, backup)
	_, err = os.Stat(backup)
	require.NoError(t, err)

	_, err = execute(t, "--db", dbPath, "backup", "--out", backup)
	assert.Error(t, err, "existing backup is not overwritten")

	_, err = execute(t, "--db", restored, "restore", "--in", backup)
	require.NoError(t, err)

	out, err = execute(t, "--db", restored, "migrations")
	require.NoError(t, err)
	assert.Contains(t, out, "0001_init")
}

func TestRestore_RequiresInput(t *testing.T) {
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "x.db"), "restore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "in" not set`)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "resume.json")
	require.NoError(t, os.WriteFile(in, []byte(`{
		"basics": {"name": "Ana Lima", "email": "ana@example.com", "summary": "Builds APIs"},
		"experience": [{"company": "R&D Labs", "position": "Engineer", "startDate": "2020", "description": "- Shipped it"}],
		"skills": ["Go", "C#"]
	}`), 0o644))

	out, err := execute(t, "render", "--in", in, "--template", "classic")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `\documentclass`))
	assert.Contains(t, out, `R\&D Labs`)

	texPath := filepath.Join(dir, "resume.tex")
	_, err = execute(t, "render", "--in", in, "--out", texPath)
	require.NoError(t, err)
	tex, err := os.ReadFile(texPath)
	require.NoError(t, err)
	assert.Contains(t, string(tex), `Ana Lima`)
}

func TestRender_InvalidContent(t *testing.T) {
	in := filepath.Join(t.TempDir(), "resume.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"experience": [{"company": "Acme"}]}`), 0o644))

	_, err := execute(t, "render", "--in", in)
	assert.Error(t, err)
}

type fakeGen struct {
	reply     string
	err       error
	healthErr error
	healthed  bool
}

func (g *fakeGen) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	return g.reply, g.err
}

func (g *fakeGen) Health(ctx context.Context) error {
	g.healthed = true
	return g.healthErr
}

func TestCheckGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("health and questions", func(t *testing.T) {
		gen := &fakeGen{reply: `{"questions": ["Tell me about an outage you handled.", "How do you test Go code?"]}`}
		var out bytes.Buffer
		require.NoError(t, checkGenerator(ctx, &out, gen, time.Second, "Backend Engineer", true))
		assert.True(t, gen.healthed)
		assert.Contains(t, out.String(), "health: ok")
		assert.Contains(t, out.String(), "questions: 2 in")
		assert.Contains(t, out.String(), "2. How do you test Go code?")
	})

	t.Run("health failure stops", func(t *testing.T) {
		gen := &fakeGen{healthErr: errors.New("model missing")}
		var out bytes.Buffer
		err := checkGenerator(ctx, &out, gen, time.Second, "SRE", true)
		assert.EqualError(t, err, "model missing")
		assert.Empty(t, out.String())
	})

	t.Run("questions disabled", func(t *testing.T) {
		gen := &fakeGen{err: errors.New("unused")}
		var out bytes.Buffer
		require.NoError(t, checkGenerator(ctx, &out, gen, time.Second, "SRE", false))
	})

	t.Run("question failure", func(t *testing.T) {
		gen := &fakeGen{reply: "not json at all"}
		var out bytes.Buffer
		err := checkGenerator(ctx, &out, gen, time.Second, "SRE", true)
		assert.ErrorContains(t, err, "generate questions")
	})
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	cfg := &config.Config{LLM: config.LLMConfig{Provider: "openai", Model: "m"}}
	_, _, err := newGenerator(context.Background(), cfg)
	assert.Error(t, err)
}
