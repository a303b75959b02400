package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beward-tools/bewardctl/internal/cgi"
	"github.com/beward-tools/bewardctl/internal/keys"
)

var keysVariant string

func init() {
	keysCmd.PersistentFlags().StringVar(&keysVariant, "variant", "auto", "Key database (auto, rfid, mifare)")

	keysCmd.AddCommand(keysExportCmd)
	keysCmd.AddCommand(keysImportCmd)
	keysCmd.AddCommand(keysEQMCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysDeleteCmd)
	rootCmd.AddCommand(keysCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the RFID/MIFARE key database",
}

// openKeys returns the keys module selected by --variant with its
// parameters loaded.
func openKeys(ctx context.Context, t cgi.Transport) (*cgi.KeysModule, error) {
	if keysVariant == "auto" {
		return cgi.DetectKeysModule(ctx, t)
	}
	v, err := keys.ParseVariant(keysVariant)
	if err != nil {
		return nil, err
	}
	m := cgi.NewKeysModule(t, v)
	if err := m.Module.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

var keysExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the key database, one key per line",
	Example: `  bewardctl keys export --host 192.168.10.21 > lobby-keys.csv
  bewardctl keys export --host 192.168.10.21 --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m, err := openKeys(ctx, t)
			if err != nil {
				return nil, err
			}
			if err := m.LoadKeys(ctx); err != nil {
				return nil, err
			}
			dump, err := m.DumpKeys(m.Variant())
			if err != nil {
				return nil, err
			}
			return &output{
				Text: string(keys.EncodeCSV(m.Keys(), m.Variant())),
				Data: json.RawMessage(dump),
			}, nil
		})
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import <keys.csv>",
	Short: "Replace the key database with the keys of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		lines := keyLines(data)
		if _, err := keys.DecodeAll(lines); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := confirmKeyReplace(cmd, len(lines)); err != nil {
			return err
		}

		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m, err := openKeys(ctx, t)
			if err != nil {
				return nil, err
			}
			if err := m.LoadKeyStrings(lines); err != nil {
				return nil, err
			}
			if err := m.Upload(ctx); err != nil {
				return nil, err
			}
			return boxed(textOutput("%d keys imported (%s)", len(lines), m.Variant()), "Key database replaced"), nil
		})
	},
}

var keysEQMCmd = &cobra.Command{
	Use:   "eqm <file>",
	Short: "Import a legacy EQM key file",
	Long: `Import keys from an EQM export. The key database variant is taken from
the file: records with more than two values select MIFARE, others RFID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		lines, variant, err := keys.ParseEQM(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := confirmKeyReplace(cmd, len(lines)); err != nil {
			return err
		}

		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewKeysModule(t, variant)
			if err := m.LoadKeyStrings(lines); err != nil {
				return nil, err
			}
			if err := m.Upload(ctx); err != nil {
				return nil, err
			}
			return boxed(textOutput("%d keys imported (%s)", len(lines), variant), "Key database replaced"), nil
		})
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add one key",
	Long: `Add one key given in database notation, e.g. "01FFAE67,12" for key
01FFAE67 of apartment 12.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keys.Decode(args[0])
		if err != nil {
			return err
		}
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m, err := openKeys(ctx, t)
			if err != nil {
				return nil, err
			}
			if err := m.AddKey(ctx, key); err != nil {
				return nil, err
			}
			return textOutput("added %s", key.ID()), nil
		})
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <key-id>",
	Short: "Delete one key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m, err := openKeys(ctx, t)
			if err != nil {
				return nil, err
			}
			if err := m.DeleteKey(ctx, id); err != nil {
				return nil, err
			}
			return textOutput("deleted %s", id), nil
		})
	},
}

func keyLines(data []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func confirmKeyReplace(cmd *cobra.Command, n int) error {
	return confirm(cmd, "REPLACE KEY DATABASE", []string{
		fmt.Sprintf("The key database of every target will be replaced by %d keys", n),
		"Keys missing from the file stop opening the door",
	})
}
