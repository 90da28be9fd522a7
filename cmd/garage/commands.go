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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/garage"
	"github.com/poiesic/garage/codec"
	"github.com/poiesic/garage/core"
	"github.com/poiesic/garage/encryption"
	"github.com/poiesic/garage/rekey"
)

func initCommand(c *cli.Context) error {
	path := c.String("config")
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	opts := []garage.ConfigOption{garage.WithBadgerDir(c.String("dir"))}
	if env := c.String("passphrase-env"); env != "" {
		opts = append(opts, garage.WithPassphraseEnv(env, core.NewIdentifier()))
	}
	cfg := garage.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := garage.WriteConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	slog.Info("wrote configuration", "path", path, "encrypted", cfg.Encryption.Enabled())
	return nil
}

func recordsCommand(c *cli.Context) error {
	statuses := core.SyncStatuses()
	if name := c.String("status"); name != "" {
		status, err := core.ParseSyncStatus(name)
		if err != nil {
			return err
		}
		statuses = []core.SyncStatus{status}
	}

	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tSTATUS\tCREATED\tMODIFIED\tCHILDREN")
	count := 0
	for _, status := range statuses {
		records, err := g.Fetch(c.Context, status, c.String("type"))
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
				r.Type, r.Identifier, r.SyncStatus,
				r.CreationDate.Format(time.RFC3339), r.ModificationDate.Format(time.RFC3339),
				len(r.Children))
			count++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	slog.Debug("listed records", "count", count)
	return nil
}

// recordView is the YAML shape printed by show.
type recordView struct {
	Type       string         `yaml:"type"`
	Identifier string         `yaml:"id"`
	SyncStatus string         `yaml:"sync_status"`
	Created    time.Time      `yaml:"created"`
	Modified   time.Time      `yaml:"modified"`
	Digest     string         `yaml:"digest"`
	Children   []string       `yaml:"children,omitempty"`
	Fields     map[string]any `yaml:"fields"`
}

func showCommand(c *cli.Context) error {
	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	key := core.Key{Type: c.String("type"), Identifier: c.String("id")}
	record, err := g.Store().Get(c.Context, key)
	if err != nil {
		return err
	}
	plaintext, err := g.Encryptor().Decrypt(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	fields, err := codec.Inspect(plaintext)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	view := recordView{
		Type:       record.Type,
		Identifier: record.Identifier,
		SyncStatus: record.SyncStatus.String(),
		Created:    record.CreationDate,
		Modified:   record.ModificationDate,
		Digest:     fmt.Sprintf("%016x", record.Digest),
		Fields:     fields,
	}
	for _, child := range record.Children {
		view.Children = append(view.Children, child.String())
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return err
	}
	return enc.Close()
}

func setStatusCommand(c *cli.Context) error {
	status, err := core.ParseSyncStatus(c.String("status"))
	if err != nil {
		return err
	}

	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.SetSyncStatus(c.Context, c.String("type"), c.String("id"), status); err != nil {
		return err
	}
	return commit(c, g)
}

func deleteCommand(c *cli.Context) error {
	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	typeName, id := c.String("type"), c.String("id")
	if c.Bool("cascade") {
		err = g.DeleteGraph(c.Context, typeName, id)
	} else {
		err = g.Delete(c.Context, typeName, id)
	}
	if err != nil {
		return err
	}
	return commit(c, g)
}

func deleteAllCommand(c *cli.Context) error {
	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	types := c.StringSlice("type")
	if err := g.DeleteAll(c.Context, types...); err != nil {
		return err
	}
	if err := commit(c, g); err != nil {
		return err
	}
	slog.Info("deleted records", "types", typeList(types))
	return nil
}

func rekeyCommand(c *cli.Context) error {
	envVar := c.String("new-passphrase-env")
	passphrase := os.Getenv(envVar)
	if passphrase == "" {
		return fmt.Errorf("%w: $%s is not set", encryption.ErrMissingPassphrase, envVar)
	}
	salt := c.String("new-salt")
	if salt == "" {
		salt = core.NewIdentifier()
	}

	config := &rekey.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	// Validate the new settings before touching any record.
	next := garage.NewConfig(garage.WithPassphraseEnv(envVar, salt))
	if err := next.Validate(); err != nil {
		return err
	}
	newEnc, err := next.Encryptor()
	if err != nil {
		return err
	}

	g, err := openGarage(c)
	if err != nil {
		return err
	}
	defer g.Close()

	rk, err := rekey.NewRekeyer(g.Store(), g.Encryptor(), newEnc, config, c.App.ErrWriter, slog.Default())
	if err != nil {
		return err
	}

	check, err := rk.Check(c.Context)
	if err != nil {
		return err
	}
	if check.Skipped > 0 {
		return fmt.Errorf("%d of %d records cannot be decrypted with the current key; nothing was rekeyed",
			check.Skipped, check.Total)
	}

	result, err := rk.Run(c.Context)
	if err != nil {
		// Committed batches already need the new key.
		fmt.Fprintf(c.App.ErrWriter, "Records rekeyed so far need passphrase_env: %s, salt: %s\n", envVar, salt)
		fmt.Fprintf(c.App.ErrWriter, "Rerun with --new-salt %s to finish.\n", salt)
		return fmt.Errorf("rekey failed: %w", err)
	}

	if c.Bool("write-config") {
		if err := updateEncryption(c.String("config"), envVar, salt); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Update the configuration: passphrase_env: %s, salt: %s\n", envVar, salt)
			return err
		}
	} else {
		fmt.Fprintf(c.App.ErrWriter, "Update the configuration: passphrase_env: %s, salt: %s\n", envVar, salt)
	}

	if result.Skipped > 0 {
		return fmt.Errorf("%d of %d records could not be decrypted and still use the old key", result.Skipped, result.Total)
	}
	return nil
}

// updateEncryption rewrites only the encryption section of the file at path.
func updateEncryption(path, envVar, salt string) error {
	cfg, err := garage.LoadConfig(path)
	if err != nil {
		return err
	}
	cfg.Encryption = garage.EncryptionConfig{PassphraseEnv: envVar, Salt: salt}
	if err := garage.WriteConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	slog.Info("updated configuration", "path", path, "passphrase_env", envVar)
	return nil
}

func commit(c *cli.Context, g *garage.Garage) error {
	if !g.HasPendingChanges() {
		return nil
	}
	if err := g.Store().Commit(c.Context); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// typeList renders the --type filter for log lines.
func typeList(types []string) string {
	if len(types) == 0 {
		return "*"
	}
	return strings.Join(types, ",")
}
