// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/garage"
	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
)

type note struct {
	ID     string
	Title  string
	Author *author
}

func (n *note) TypeName() string   { return "Note" }
func (n *note) Identifier() string { return n.ID }
func (n *note) MapFields(m codec.Mapper) {
	m.String("id", &n.ID, codec.Required)
	m.String("title", &n.Title)
	codec.Ref(m, "author", &n.Author)
}

type author struct {
	ID   string
	Name string
}

func (a *author) TypeName() string   { return "Author" }
func (a *author) Identifier() string { return a.ID }
func (a *author) MapFields(m codec.Mapper) {
	m.String("id", &a.ID, codec.Required)
	m.String("name", &a.Name)
}

type result struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, cfgPath string, args ...string) result {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"garage", "--config", cfgPath, "--log-level", "error"}, args...))
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

// newGarageDir initialises a configuration in a temp dir and parks one note
// referencing one author.
func newGarageDir(t *testing.T, initArgs ...string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "garage.yaml")
	res := runCLI(t, cfgPath, append([]string{"init"}, initArgs...)...)
	require.NoError(t, res.err)

	withGarage(t, cfgPath, func(g *garage.Garage) {
		n := &note{ID: "n1", Title: "Buy milk", Author: &author{ID: "a1", Name: "Ada"}}
		require.NoError(t, g.Park(context.Background(), n))
	})
	return cfgPath
}

func withGarage(t *testing.T, cfgPath string, fn func(g *garage.Garage)) {
	t.Helper()
	cfg, err := garage.LoadConfig(cfgPath)
	require.NoError(t, err)
	for i := range cfg.Stores {
		cfg.Stores[i].Location = filepath.Join(filepath.Dir(cfgPath), cfg.Stores[i].Location)
	}
	g, err := garage.Open(context.Background(), cfg)
	require.NoError(t, err)
	garage.Register[note](g)
	garage.Register[author](g)
	defer func() { require.NoError(t, g.Close()) }()
	fn(g)
}

func TestSetupLogger(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "garage.yaml")
	app := newApp()
	err := app.Run([]string{"garage", "--config", cfgPath, "--log-level", "loud", "records"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "garage.yaml")

	require.NoError(t, runCLI(t, cfgPath, "init", "--passphrase-env", "GARAGE_TEST_KEY").err)
	cfg, err := garage.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.True(t, cfg.Autosave)
	require.Len(t, cfg.Stores, 1)
	assert.Equal(t, "garage-data", cfg.Stores[0].Location)
	assert.Equal(t, "GARAGE_TEST_KEY", cfg.Encryption.PassphraseEnv)
	assert.NotEmpty(t, cfg.Encryption.Salt)

	t.Run("refuses to overwrite", func(t *testing.T) {
		res := runCLI(t, cfgPath, "init")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		require.NoError(t, runCLI(t, cfgPath, "init", "--force", "--dir", "other").err)
		cfg, err := garage.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, "other", cfg.Stores[0].Location)
		assert.False(t, cfg.Encryption.Enabled())
	})
}

func TestMissingConfig(t *testing.T) {
	res := runCLI(t, filepath.Join(t.TempDir(), "nope.yaml"), "records")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "garage init")
}

func TestRecords(t *testing.T) {
	cfgPath := newGarageDir(t)

	t.Run("all", func(t *testing.T) {
		res := runCLI(t, cfgPath, "records")
		require.NoError(t, res.err)
		lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
		assert.Contains(t, res.stdout, "Note")
		assert.Contains(t, res.stdout, "Author")
		assert.Contains(t, res.stdout, "needs-upload")
	})

	t.Run("by type", func(t *testing.T) {
		res := runCLI(t, cfgPath, "records", "--type", "Author")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "a1")
		assert.NotContains(t, res.stdout, "n1")
	})

	t.Run("by status", func(t *testing.T) {
		res := runCLI(t, cfgPath, "records", "--status", "uploaded")
		require.NoError(t, res.err)
		assert.Len(t, strings.Split(strings.TrimSpace(res.stdout), "\n"), 1, "header only")
	})

	t.Run("bad status", func(t *testing.T) {
		res := runCLI(t, cfgPath, "records", "--status", "lost")
		assert.ErrorIs(t, res.err, core.ErrInvalidSyncStatus)
	})
}

func TestShow(t *testing.T) {
	cfgPath := newGarageDir(t)

	res := runCLI(t, cfgPath, "show", "--type", "Note", "--id", "n1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "type: Note")
	assert.Contains(t, res.stdout, "sync_status: needs-upload")
	assert.Contains(t, res.stdout, "title: Buy milk")
	assert.Contains(t, res.stdout, "$ref: Author/a1")
	assert.Contains(t, res.stdout, "- Author/a1", "children listed")

	res = runCLI(t, cfgPath, "show", "--type", "Note", "--id", "missing")
	assert.ErrorIs(t, res.err, core.ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	cfgPath := newGarageDir(t)

	require.NoError(t, runCLI(t, cfgPath, "set-status", "--type", "Note", "--id", "n1", "--status", "uploaded").err)

	res := runCLI(t, cfgPath, "records", "--status", "uploaded")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "n1")
	assert.NotContains(t, res.stdout, "a1")

	res = runCLI(t, cfgPath, "set-status", "--type", "Note", "--id", "zzz", "--status", "uploaded")
	assert.ErrorIs(t, res.err, core.ErrNotFound)
}

func TestDelete(t *testing.T) {
	t.Run("non-cascading", func(t *testing.T) {
		cfgPath := newGarageDir(t)
		require.NoError(t, runCLI(t, cfgPath, "delete", "--type", "Note", "--id", "n1").err)

		res := runCLI(t, cfgPath, "records")
		require.NoError(t, res.err)
		assert.NotContains(t, res.stdout, "n1")
		assert.Contains(t, res.stdout, "a1", "referenced author survives")
	})

	t.Run("cascade", func(t *testing.T) {
		cfgPath := newGarageDir(t)
		require.NoError(t, runCLI(t, cfgPath, "delete", "--type", "Note", "--id", "n1", "--cascade").err)

		res := runCLI(t, cfgPath, "records")
		require.NoError(t, res.err)
		assert.NotContains(t, res.stdout, "n1")
		assert.NotContains(t, res.stdout, "a1")
	})

	t.Run("missing", func(t *testing.T) {
		cfgPath := newGarageDir(t)
		res := runCLI(t, cfgPath, "delete", "--type", "Note", "--id", "n2")
		assert.ErrorIs(t, res.err, core.ErrNotFound)
	})
}

func TestDeleteAll(t *testing.T) {
	cfgPath := newGarageDir(t)

	res := runCLI(t, cfgPath, "delete-all", "--type", "Author")
	require.Error(t, res.err, "--yes is required")

	require.NoError(t, runCLI(t, cfgPath, "delete-all", "--type", "Author", "--yes").err)
	res = runCLI(t, cfgPath, "records")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "n1")
	assert.NotContains(t, res.stdout, "a1")

	require.NoError(t, runCLI(t, cfgPath, "delete-all", "--yes").err)
	res = runCLI(t, cfgPath, "records")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stdout, "n1")
}

func TestRekey(t *testing.T) {
	t.Setenv("GARAGE_TEST_OLD", "old passphrase")
	t.Setenv("GARAGE_TEST_NEW", "new passphrase")
	cfgPath := newGarageDir(t, "--passphrase-env", "GARAGE_TEST_OLD")

	t.Run("missing passphrase", func(t *testing.T) {
		res := runCLI(t, cfgPath, "rekey", "--new-passphrase-env", "GARAGE_TEST_UNSET")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "GARAGE_TEST_UNSET")
	})

	t.Run("rotates and rewrites config", func(t *testing.T) {
		res := runCLI(t, cfgPath, "rekey",
			"--new-passphrase-env", "GARAGE_TEST_NEW",
			"--new-salt", "fresh-salt-value",
			"--write-config",
			"--retry-delay", "1ms")
		require.NoError(t, res.err)
		assert.Contains(t, res.stderr, "Rekeyed 2 of 2 records")

		cfg, err := garage.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, "GARAGE_TEST_NEW", cfg.Encryption.PassphraseEnv)
		assert.Equal(t, "fresh-salt-value", cfg.Encryption.Salt)
		assert.Equal(t, "garage-data", cfg.Stores[0].Location, "relative location kept")

		withGarage(t, cfgPath, func(g *garage.Garage) {
			n, err := garage.RetrieveAs[note](context.Background(), g, "n1")
			require.NoError(t, err)
			require.NotNil(t, n)
			assert.Equal(t, "Buy milk", n.Title)
			assert.Equal(t, "Ada", n.Author.Name)
		})
	})

	t.Run("config now needs the new passphrase", func(t *testing.T) {
		t.Setenv("GARAGE_TEST_NEW", "")
		res := runCLI(t, cfgPath, "records")
		assert.ErrorIs(t, res.err, encryption.ErrMissingPassphrase)
	})
}

func TestRekey_UndecryptableRecord(t *testing.T) {
	t.Setenv("GARAGE_TEST_OLD", "old passphrase")
	t.Setenv("GARAGE_TEST_NEW", "new passphrase")
	cfgPath := newGarageDir(t, "--passphrase-env", "GARAGE_TEST_OLD")
	before, err := garage.LoadConfig(cfgPath)
	require.NoError(t, err)

	bad := core.Key{Type: "Note", Identifier: "bad"}
	withGarage(t, cfgPath, func(g *garage.Garage) {
		ctx := context.Background()
		require.NoError(t, g.Store().Insert(ctx, &core.Record{
			Type: bad.Type, Identifier: bad.Identifier,
			Payload: "not-ciphertext", CreationDate: time.Now(),
		}))
		require.NoError(t, g.Store().Commit(ctx))
	})

	t.Run("refuses before changing anything", func(t *testing.T) {
		res := runCLI(t, cfgPath, "rekey",
			"--new-passphrase-env", "GARAGE_TEST_NEW",
			"--write-config",
			"--retry-delay", "1ms")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "1 of 3 records")
		assert.Contains(t, res.err.Error(), "nothing was rekeyed")
		assert.NotContains(t, res.stderr, "Starting rekey")

		after, err := garage.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, before.Encryption, after.Encryption, "config untouched")

		withGarage(t, cfgPath, func(g *garage.Garage) {
			n, err := garage.RetrieveAs[note](context.Background(), g, "n1")
			require.NoError(t, err)
			require.NotNil(t, n)
			assert.Equal(t, "Buy milk", n.Title)
		})
	})

	t.Run("prints the new settings without write-config", func(t *testing.T) {
		withGarage(t, cfgPath, func(g *garage.Garage) {
			ctx := context.Background()
			require.NoError(t, g.Store().Delete(ctx, bad))
			require.NoError(t, g.Store().Commit(ctx))
		})

		res := runCLI(t, cfgPath, "rekey",
			"--new-passphrase-env", "GARAGE_TEST_NEW",
			"--new-salt", "printed-salt",
			"--retry-delay", "1ms")
		require.NoError(t, res.err)
		assert.Contains(t, res.stderr, "Rekeyed 2 of 2 records")
		assert.Contains(t, res.stderr, "passphrase_env: GARAGE_TEST_NEW, salt: printed-salt")

		after, err := garage.LoadConfig(cfgPath)
		require.NoError(t, err)
		assert.Equal(t, before.Encryption, after.Encryption)
	})
}
