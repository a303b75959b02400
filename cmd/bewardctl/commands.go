package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/beward-tools/bewardctl/internal/cgi"
	"github.com/beward-tools/bewardctl/internal/protocol"
)

// Module command flags
var (
	noVerify      bool
	verifyRetries int
	dumpProfile   string
	dumpOutput    string
	capsLocalized bool
)

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(capsCmd)

	setCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip verification and automatic rollback")
	setCmd.Flags().IntVar(&verifyRetries, "verify-retries", 3, "Number of verification retries")

	dumpCmd.Flags().StringVar(&dumpProfile, "profile", "default", "Module profile when no modules are named (default, dks, ds)")
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Output file, or directory when several hosts are dumped")

	capsCmd.Flags().BoolVar(&capsLocalized, "localized", false, "Show permission labels instead of codes")
}

// getCmd prints the parameters of one module
var getCmd = &cobra.Command{
	Use:   "get <module>",
	Short: "Show the parameters of a module",
	Example: `  bewardctl get ntp --host 192.168.10.21
  bewardctl get sip --host 192.168.10.0/28 --workers 8 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m, err := cgi.Open(t, name)
			if err != nil {
				return nil, err
			}
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			values, err := m.Get()
			if err != nil {
				return nil, err
			}
			fields := moduleFields(m, values)
			return &output{Text: cgi.FormatFields(name, fields), Data: fields}, nil
		})
	},
}

// moduleFields keeps the device order when the module exposes it.
func moduleFields(m cgi.Configurable, values map[string]string) *protocol.Fields {
	type ordered interface {
		Fields() (*protocol.Fields, error)
	}
	if o, ok := m.(ordered); ok {
		if f, err := o.Fields(); err == nil {
			return f
		}
	}
	return protocol.FieldsFromMap(values)
}

// setCmd updates module parameters
var setCmd = &cobra.Command{
	Use:   "set <module> <key=value>...",
	Short: "Change module parameters",
	Long: `Change parameters of a module. Unknown keys are ignored.

The change is verified by reloading the module. When verification fails
the previous values are written back. Changes to addressing parameters
may make the panel unreachable and need --yes.`,
	Example: `  bewardctl set ntp ServerAddress=pool.ntp.org Enable=1 --host 192.168.10.21
  bewardctl set audio SpeakerVolume=80 --host 192.168.10.0/24 -w 16`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		changes, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		if errs := cgi.ValidateChanges(name, changes); len(errs) > 0 {
			return errors.New(strings.TrimRight(cgi.FormatValidationErrors(errs), "\n"))
		}

		return sweepTitled(cmd, "Parameter update", func(ctx context.Context, t cgi.Transport, host string) (*output, error) {
			m, err := cgi.Open(t, name)
			if err != nil {
				return nil, err
			}
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			current, err := m.Get()
			if err != nil {
				return nil, err
			}
			if warning := cgi.DestructiveWarning(name, current, changes); warning != "" && !opts.yes {
				return nil, fmt.Errorf("%s\nrerun with --yes to apply", warning)
			}
			text := cgi.FormatChanges(name, current, changes)

			if noVerify {
				if err := m.Update(changes); err != nil {
					return nil, err
				}
				if err := m.Set(ctx); err != nil {
					return nil, err
				}
				return &output{
					Text:    text + "\nUpdated (not verified)",
					Data:    changes,
					Box:     name + " updated without verification",
					Warning: true,
				}, nil
			}

			vopts := cgi.DefaultVerificationOptions()
			vopts.MaxRetries = verifyRetries
			result := cgi.NewRollbackManager(m).SafeUpdate(ctx, changes, vopts, fmt.Sprintf("set %s on %s", name, host))
			if !result.Success {
				if diff := verificationDiff(name, changes, result); diff != "" {
					return nil, fmt.Errorf("%w\n%s", result.Error, diff)
				}
				return nil, result.Error
			}
			return &output{
				Text: text + "\n" + result.String(),
				Data: result.UpdateResult.Actual,
				Box:  name + " updated",
			}, nil
		})
	},
}

// verificationDiff shows the requested values against what the panel
// reported when verification found a mismatch.
func verificationDiff(name string, changes map[string]string, result *cgi.SafeUpdateResult) string {
	vr := result.UpdateResult
	if vr == nil || len(vr.Mismatches) == 0 || vr.Actual == nil {
		return ""
	}
	requested := make(map[string]string, len(changes))
	reported := make(map[string]string, len(changes))
	for k, v := range changes {
		if got, ok := vr.Actual[k]; ok {
			requested[k] = v
			reported[k] = got
		}
	}
	return strings.TrimRight(cgi.FormatDiff(name, requested, reported), "\n")
}

func parseAssignments(args []string) (map[string]string, error) {
	changes := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", arg)
		}
		changes[key] = value
	}
	return changes, nil
}

// dumpCmd saves panel configurations as JSON
var dumpCmd = &cobra.Command{
	Use:   "dump [modules...]",
	Short: "Dump module configurations to JSON",
	Long: `Load the named modules (or the modules of --profile) and write them as
one JSON document per host. Modules the panel does not offer are skipped.`,
	Example: `  bewardctl dump --host 192.168.10.21 -o lobby.json
  bewardctl dump network ntp sip --host 192.168.10.0/28 -o backups/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			var err error
			if names, err = cgi.ProfileModules(dumpProfile); err != nil {
				return err
			}
		}
		for _, name := range names {
			if !slices.Contains(cgi.ModuleNames(), name) {
				return fmt.Errorf("unknown module %q", name)
			}
		}

		return sweepTitled(cmd, "Configuration dump", func(ctx context.Context, t cgi.Transport, host string) (*output, error) {
			doc, err := cgi.DumpModules(ctx, t, names)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if _, err := doc.WriteTo(&buf); err != nil {
				return nil, err
			}

			path, err := dumpPath(host)
			if err != nil {
				return nil, err
			}
			if path == "" {
				return &output{Text: buf.String(), Data: doc}, nil
			}
			if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
				return nil, fmt.Errorf("failed to write dump: %w", err)
			}
			return &output{
				Text: fmt.Sprintf("%d sections written to %s", len(doc.Names()), path),
				Data: map[string]any{"file": path, "sections": doc.Names()},
				Box:  "Configuration dumped",
			}, nil
		})
	},
}

// dumpPath returns where the dump of host goes: stdout (""), the --output
// file, or <output>/<host>.json when --output is a directory or several
// hosts are targeted.
func dumpPath(host string) (string, error) {
	if dumpOutput == "" {
		return "", nil
	}
	info, err := os.Stat(dumpOutput)
	isDir := err == nil && info.IsDir()
	if !isDir && strings.HasSuffix(dumpOutput, string(os.PathSeparator)) {
		if err := os.MkdirAll(dumpOutput, 0700); err != nil {
			return "", err
		}
		isDir = true
	}
	if isDir {
		return filepath.Join(dumpOutput, host+".json"), nil
	}
	if len(opts.hosts) > 1 || strings.Contains(strings.Join(opts.hosts, ","), "/") || opts.targetsFile != "" {
		return "", fmt.Errorf("--output must be a directory when several hosts are dumped")
	}
	return dumpOutput, nil
}

// restoreCmd applies a dump
var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore module configurations from a JSON dump",
	Example: `  bewardctl restore lobby.json --host 192.168.10.21`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		doc, err := cgi.ReadDocument(f)
		f.Close()
		if err != nil {
			return err
		}

		if doc.Has("network") || doc.Has(cgi.KeysSection) || doc.Has(cgi.MifareKeysSection) {
			if err := confirm(cmd, "RESTORE CONFIGURATION", []string{
				"The dump contains network settings or a key database",
				"Panel addresses and every stored key will be replaced",
			}); err != nil {
				return err
			}
		}

		return sweepTitled(cmd, "Configuration restore", func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			restored, err := cgi.RestoreModules(ctx, t, doc)
			if err != nil {
				return nil, err
			}
			return &output{
				Text: fmt.Sprintf("restored %s", strings.Join(restored, ", ")),
				Data: map[string]any{"restored": restored},
				Box:  "Configuration restored",
			}, nil
		})
	},
}

// modulesCmd lists module names and profiles; it never contacts a device
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List known modules and dump profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		names := cgi.ModuleNames()
		if opts.format == formatJSON {
			return writeJSON(w, map[string]any{"modules": names, "profiles": cgi.Profiles})
		}

		fmt.Fprintln(w, "Modules:")
		for _, name := range names {
			path, plain := cgi.LookupEndpoint(name)
			if !plain {
				path = "(specialised)"
			}
			fmt.Fprintf(w, "  %-16s %s\n", name, path)
		}
		fmt.Fprintln(w, "\nProfiles:")
		profiles := lo.Keys(cgi.Profiles)
		slices.Sort(profiles)
		for _, p := range profiles {
			fmt.Fprintf(w, "  %-8s %s\n", p, strings.Join(cgi.Profiles[p], " "))
		}
		return nil
	},
}

// capsCmd prints the decoded user capabilities
var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Show user capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewUserCapabilitiesModule(t)
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			all, err := m.All(capsLocalized)
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "[%s]\n", m.Header())
			for _, user := range m.Users() {
				fmt.Fprintf(&b, "%s:\n", user)
				for _, e := range all[user] {
					label := e.Code
					if capsLocalized && e.Label != "" {
						label = e.Label
					}
					fmt.Fprintf(&b, "  %-40s %s\n", label, e.Value)
				}
			}
			return &output{Text: b.String(), Data: all}, nil
		})
	},
}
