package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/cgi"
	"github.com/beward-tools/bewardctl/internal/config"
	"github.com/beward-tools/bewardctl/internal/fleet"
	"github.com/beward-tools/bewardctl/internal/logging"
	"github.com/beward-tools/bewardctl/internal/transport"
	"github.com/beward-tools/bewardctl/internal/ui"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// Global flags
type options struct {
	hosts       []string
	targetsFile string
	user        string
	password    string
	group       string
	port        int
	https       bool
	timeout     time.Duration
	retries     int
	workers     int
	configPath  string
	logLevel    string
	format      string
	every       time.Duration
	yes         bool
}

var (
	opts  options
	cfg   *config.Config
	store *config.Store
)

func registerGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringSliceVar(&opts.hosts, "host", nil, "Target addresses or CIDR networks (comma separated)")
	f.StringVar(&opts.targetsFile, "targets", "", "File with one target per line")
	f.StringVarP(&opts.user, "user", "u", "", "Device username (overrides the credential store)")
	f.StringVarP(&opts.password, "password", "p", "", "Device password (prompted when --user is given alone)")
	f.StringVar(&opts.group, "group", "admin", "Credential group used for store lookups")
	f.IntVar(&opts.port, "port", 80, "Device HTTP port")
	f.BoolVar(&opts.https, "https", false, "Use HTTPS")
	f.DurationVar(&opts.timeout, "timeout", cgi.DefaultTimeout, "Request timeout")
	f.IntVar(&opts.retries, "retries", transport.DefaultMaxRetries, "Retries after the first attempt for network errors and 5xx replies")
	f.IntVarP(&opts.workers, "workers", "w", 1, "Hosts processed concurrently")
	f.StringVar(&opts.configPath, "config", "", "Configuration file (default: user config dir)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); default BEWARD_LOG_LEVEL")
	f.StringVar(&opts.format, "format", formatText, "Output format (text, json)")
	f.DurationVar(&opts.every, "every", 0, "Repeat the sweep at this interval until interrupted")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation of dangerous operations")
}

// setup runs before every command: logging, configuration and the
// defaults that flags did not override.
func setup(cmd *cobra.Command, _ []string) error {
	if err := logging.Initialize(opts.logLevel); err != nil {
		return err
	}
	if opts.format != formatText && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q, want text or json", opts.format)
	}

	var err error
	cfg, err = config.Load(opts.configPath)
	if err != nil {
		return err
	}
	store = config.NewStore(cfg)

	flags := cmd.Flags()
	d := cfg.Defaults
	if !flags.Changed("port") {
		opts.port = d.Port
	}
	if !flags.Changed("https") {
		opts.https = d.HTTPS
	}
	if !flags.Changed("timeout") {
		opts.timeout = d.Timeout.Std()
	}
	if !flags.Changed("retries") {
		opts.retries = d.Retries
	}
	if !flags.Changed("workers") {
		opts.workers = d.Workers
	}

	if opts.user != "" && opts.password == "" && !flags.Changed("password") {
		pw, err := config.PromptPassword(os.Stderr, fmt.Sprintf("Password for %s: ", opts.user))
		if err != nil {
			return err
		}
		opts.password = pw
	}
	return nil
}

// newClient builds the transport for host. Credentials come from the
// flags, then the store, then the factory defaults.
func newClient(host string) *transport.Client {
	c := transport.NewClient(host, opts.port, opts.https)
	c.SetTimeout(opts.timeout)
	c.SetRetry(opts.retries, cfg.Defaults.RetryDelay.Std())
	c.SetInsecureTLS(cfg.Defaults.InsecureTLS)

	switch {
	case opts.user != "":
		c.SetAuth(opts.user, opts.password)
	default:
		cred, err := store.Lookup(host, opts.group)
		if err == nil {
			c.SetAuth(cred.Username, cred.Password)
		} else if !errors.Is(err, config.ErrNoCredentials) {
			logging.Warn("credential lookup failed", zap.String("host", host), zap.Error(err))
		}
	}
	return c
}

// resolveTargets expands the target flags, falling back to the networks
// of the configuration file.
func resolveTargets() ([]string, error) {
	targets := append([]string(nil), opts.hosts...)
	if opts.targetsFile != "" {
		data, err := os.ReadFile(opts.targetsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read targets: %w", err)
		}
		targets = append(targets, fleet.ReadTargets(data)...)
	}
	if len(targets) == 0 {
		targets = cfg.Networks
	}

	hosts, err := fleet.ExpandTargets(targets)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, errors.New("no targets: use --host, --targets or networks in the config file")
	}
	return hosts, nil
}

// output is what a device task hands back for rendering.
type output struct {
	Text string // Rendered for --format text
	Data any    // Encoded for --format json

	// Box, when set, titles the result box shown for a single host on a
	// terminal. Warning selects the warning style.
	Box     string
	Warning bool
}

func textOutput(format string, args ...any) *output {
	s := fmt.Sprintf(format, args...)
	return &output{Text: s, Data: map[string]string{"message": s}}
}

// boxed titles the result box of o.
func boxed(o *output, title string) *output {
	o.Box = title
	return o
}

// deviceTask is the body of a command for one host.
type deviceTask func(ctx context.Context, t cgi.Transport, host string) (*output, error)

// sweep runs task on every target, once or on the --every schedule.
func sweep(cmd *cobra.Command, task deviceTask) error {
	return sweepTitled(cmd, "", task)
}

// sweepTitled is sweep with a header banner on stderr naming the
// operation and its targets. The banner is only shown on a terminal in
// text mode so that redirected output stays clean.
func sweepTitled(cmd *cobra.Command, title string, task deviceTask) error {
	hosts, err := resolveTargets()
	if err != nil {
		return err
	}
	if title != "" && opts.format == formatText && ui.IsTerminal() {
		fmt.Fprintln(cmd.ErrOrStderr(), sweepHeader(cmd, title, hosts).Render())
	}

	run := func(ctx context.Context) error {
		report := fleet.Runner{Workers: opts.workers}.Run(ctx, hosts, func(ctx context.Context, host string) (any, error) {
			return task(ctx, newClient(host), host)
		})
		return render(cmd.OutOrStdout(), report)
	}

	if opts.every > 0 {
		return fleet.Schedule(cmd.Context(), opts.every, func(ctx context.Context) {
			if err := run(ctx); err != nil {
				logging.Warn("sweep finished with failures", zap.Error(err))
			}
		})
	}
	return run(cmd.Context())
}

func sweepHeader(cmd *cobra.Command, title string, hosts []string) *ui.Header {
	command := strings.TrimSpace(cmd.CommandPath() + " " + strings.Join(cmd.Flags().Args(), " "))
	target := hosts[0]
	if len(hosts) > 1 {
		target = fmt.Sprintf("%d hosts (%s ... %s)", len(hosts), hosts[0], hosts[len(hosts)-1])
	}
	params := []ui.Detail{{Key: "Targets", Value: target}}
	if len(hosts) > 1 {
		params = append(params, ui.Detail{Key: "Workers", Value: fmt.Sprint(max(opts.workers, 1))})
	}
	if opts.every > 0 {
		params = append(params, ui.Detail{Key: "Every", Value: opts.every.String()})
	}
	return ui.NewHeader(title, command, params...)
}

type hostJSON struct {
	Host     string `json:"host"`
	RunID    string `json:"run_id"`
	Duration string `json:"duration"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
}

func render(w io.Writer, report *fleet.Report) error {
	if opts.format == formatJSON {
		out := make([]hostJSON, 0, len(report.Results))
		for _, r := range report.Results {
			h := hostJSON{Host: r.Host, RunID: report.RunID, Duration: r.Duration.String()}
			if r.Err != nil {
				h.Error = r.Err.Error()
			} else if o, ok := r.Value.(*output); ok && o != nil {
				h.Data = o.Data
			}
			out = append(out, h)
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
		return report.Err()
	}

	if len(report.Results) == 1 {
		r := report.Results[0]
		if r.Err != nil {
			fmt.Fprintln(w, failureBox(r.Host, r.Err))
			return r.Err
		}
		o, ok := r.Value.(*output)
		if !ok || o == nil {
			return nil
		}
		if o.Box != "" && ui.IsTerminal() {
			fmt.Fprintln(w, resultBox(r.Host, r.Duration, o))
			return nil
		}
		if o.Text != "" {
			fmt.Fprintln(w, strings.TrimRight(o.Text, "\n"))
		}
		return nil
	}

	for _, r := range report.Results {
		o, ok := r.Value.(*output)
		if r.Err != nil || !ok || o == nil || o.Text == "" || !strings.Contains(o.Text, "\n") {
			continue
		}
		fmt.Fprintf(w, "== %s ==\n%s\n\n", r.Host, strings.TrimRight(o.Text, "\n"))
	}
	fmt.Fprintln(w, ui.ReportTable(report, func(v any) string {
		if o, ok := v.(*output); ok && o != nil && o.Text != "" && !strings.Contains(o.Text, "\n") {
			return o.Text
		}
		return "ok"
	}))
	return report.Err()
}

// resultBox renders a single-host outcome. Multi-line text is shown above
// the box, a one-line text becomes its Result detail.
func resultBox(host string, took time.Duration, o *output) string {
	details := []ui.Detail{{Key: "Host", Value: host}}
	text := strings.TrimRight(o.Text, "\n")
	body := ""
	if strings.Contains(text, "\n") {
		body = text + "\n"
	} else if text != "" {
		details = append(details, ui.Detail{Key: "Result", Value: text})
	}
	details = append(details, ui.Detail{Key: "Duration", Value: took.Round(time.Millisecond).String()})

	if o.Warning {
		return body + ui.RenderWarning(o.Box, details...)
	}
	return body + ui.RenderSuccess(o.Box, details...)
}

func failureBox(host string, err error) string {
	var tips []string
	for _, line := range strings.Split(cgi.GetTroubleshootingHint(err), "\n") {
		if tip, ok := strings.CutPrefix(strings.TrimSpace(line), "• "); ok {
			tips = append(tips, tip)
		}
	}
	if !ui.IsTerminal() {
		msg := fmt.Sprintf("%s: %s", host, cgi.GetShortErrorMessage(err))
		for _, tip := range tips {
			msg += "\n  - " + tip
		}
		return msg
	}
	return ui.RenderFailure(host, err, tips)
}

// confirm asks before a dangerous operation unless --yes was given.
func confirm(cmd *cobra.Command, title string, warnings []string) error {
	if opts.yes {
		return nil
	}
	if !ui.ConfirmDangerousOperation(cmd.InOrStdin(), cmd.ErrOrStderr(), title, warnings) {
		return errors.New("operation cancelled")
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
