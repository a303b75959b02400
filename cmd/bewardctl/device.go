package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/beward-tools/bewardctl/internal/cgi"
	"github.com/beward-tools/bewardctl/internal/protocol"
	"github.com/beward-tools/bewardctl/internal/timezone"
	"github.com/beward-tools/bewardctl/internal/ui"
)

// Device command flags
var (
	dateValue    string
	dateZone     string
	hardReset    bool
	osdLabel     int
	osdDirection string
	osdChannel   int
	osdShift     float64
	imageChannel int
	imageOutput  string
	certParams   []string
	aptNumber    string
	aptParam     string
)

func init() {
	dateSetCmd.Flags().StringVar(&dateValue, "date", "", `Date "DD.MM.YYYY" or "DD.MM.YYYY HH:MM" (default: now)`)
	dateSetCmd.Flags().StringVar(&dateZone, "tz", "MSK", "Timezone abbreviation or table index")
	dateCmd.AddCommand(dateShowCmd, dateSetCmd)

	resetCmd.Flags().BoolVar(&hardReset, "hard", false, "Also reset network settings (hardfactorydefault)")

	osdMoveCmd.Flags().IntVar(&osdLabel, "label", cgi.OSDLabelDateTime, "Label: 1 date/time, 2 title")
	osdMoveCmd.Flags().StringVar(&osdDirection, "direction", "Right", "Up, Down, Left or Right")
	osdMoveCmd.Flags().IntVar(&osdChannel, "channel", 0, "Video channel 0-3")
	osdMoveCmd.Flags().Float64Var(&osdShift, "shift", 8, "Shift in pixels (8 per step)")
	osdCmd.AddCommand(osdMoveCmd)

	sipCmd.AddCommand(sipStatusCmd, sipCallCmd)

	snapshotCmd.Flags().IntVar(&imageChannel, "channel", 0, "Video channel")
	snapshotCmd.Flags().StringVarP(&imageOutput, "output", "o", ".", "Directory for <host>.jpg files")

	certCreateCmd.Flags().StringSliceVar(&certParams, "param", nil, "Certificate parameter key=value (CommonName, Days, ...)")
	certCmd.AddCommand(certCreateCmd, certDeleteCmd, certDeleteRequestCmd)

	apartmentCmd.PersistentFlags().StringVar(&aptNumber, "number", "1", "Apartment number")
	apartmentGenerateCmd.Flags().StringVar(&aptParam, "code", cgi.DoorCode, "Code to generate (DoorCode, RegCode)")
	apartmentCmd.AddCommand(apartmentShowCmd, apartmentListCmd, apartmentGenerateCmd)

	rootCmd.AddCommand(dateCmd, timezonesCmd, restartCmd, resetCmd, upgradeCmd,
		osdCmd, sipCmd, snapshotCmd, certCmd, apartmentCmd, checkCmd)
}

var dateCmd = &cobra.Command{
	Use:   "date",
	Short: "Show or set the panel clock",
}

var dateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the panel clock",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewDateModule(t)
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			now, err := m.Time()
			if err != nil {
				return nil, err
			}
			tz, _ := m.Timezone()
			ntp, _ := m.Value(cgi.DateNTPHost)
			return &output{
				Text: fmt.Sprintf("%s %s (ntp %s)", now.Format(time.DateTime), tz.Abbreviation, ntp),
				Data: map[string]any{"time": now, "timezone": tz, "ntp_host": ntp},
			}, nil
		})
	},
}

var dateSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the panel clock",
	Long: `Set the panel clock and timezone. A date without a time gets a random
time of day between 08:00 and 18:59, and seconds are always random, so
panels set in one sweep do not share a clock.`,
	Example: `  bewardctl date set --date "01.09.2026 10:30" --tz MSK --host 192.168.10.21
  bewardctl date set --tz YEKT --host 192.168.10.0/24 -w 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tz, err := lookupTimezone(dateZone)
		if err != nil {
			return err
		}
		rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			when := time.Now().In(tz.Location())
			if dateValue != "" {
				var err error
				if when, err = cgi.ParseDate(dateValue, tz.Location(), rnd); err != nil {
					return nil, err
				}
			}
			if err := cgi.NewDateModule(t).SetDateTime(ctx, when, tz); err != nil {
				return nil, err
			}
			return textOutput("clock set to %s %s", when.Format(time.DateTime), tz.Abbreviation), nil
		})
	},
}

func lookupTimezone(s string) (timezone.Entry, error) {
	var index int
	if _, err := fmt.Sscanf(s, "%d", &index); err == nil {
		return timezone.ByIndex(index)
	}
	return timezone.ByAbbreviation(strings.ToUpper(s))
}

// timezonesCmd prints the panel timezone table; it never contacts a device
var timezonesCmd = &cobra.Command{
	Use:   "timezones",
	Short: "List the timezones understood by the panels",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if opts.format == formatJSON {
			return writeJSON(w, timezone.All())
		}
		for i, e := range timezone.All() {
			fmt.Fprintf(w, "%3d  %-18s %s\n", i, e, e.Description)
		}
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Reboot the panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			if err := cgi.NewRestartModule(t).Restart(ctx); err != nil {
				return nil, err
			}
			return textOutput("restarting"), nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore factory defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hardReset && !opts.yes {
			target := strings.Join(opts.hosts, ", ")
			if target == "" {
				target = "every targeted panel"
			}
			if !ui.HardResetConfirmation(cmd.InOrStdin(), cmd.ErrOrStderr(), target) {
				return fmt.Errorf("operation cancelled")
			}
		} else if err := confirm(cmd, "FACTORY RESET", []string{"All settings except the network parameters will be erased"}); err != nil {
			return err
		}

		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewFactoryDefaultModule(t)
			if hardReset {
				if err := m.HardReset(ctx); err != nil {
					return nil, err
				}
				return textOutput("hard reset"), nil
			}
			if err := m.Reset(ctx); err != nil {
				return nil, err
			}
			return textOutput("reset"), nil
		})
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <firmware>",
	Short: "Upload a firmware image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if err := confirm(cmd, "FIRMWARE UPGRADE", []string{
			fmt.Sprintf("%s (%d bytes) will be flashed", filepath.Base(args[0]), len(image)),
			"Do not power off the panels until they come back",
		}); err != nil {
			return err
		}

		name := filepath.Base(args[0])
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			if err := cgi.NewUpgradeModule(t).Upgrade(ctx, name, image); err != nil {
				return nil, err
			}
			return textOutput("upgrade started"), nil
		})
	},
}

var osdCmd = &cobra.Command{
	Use:   "osd",
	Short: "On-screen display labels",
}

var osdMoveCmd = &cobra.Command{
	Use:     "move",
	Short:   "Move an OSD label",
	Example: `  bewardctl osd move --label 2 --direction Down --shift 32 --host 192.168.10.21`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			err := cgi.NewOSDPositionModule(t).ChangePosition(ctx, osdLabel, osdDirection, osdChannel, osdShift)
			if err != nil {
				return nil, err
			}
			return textOutput("moved %s %gpx", osdDirection, osdShift), nil
		})
	},
}

var sipCmd = &cobra.Command{
	Use:   "sip",
	Short: "SIP account status and test calls",
}

var sipStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show SIP registration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			fields, err := cgi.NewSipModule(t).RegStatus(ctx)
			if err != nil {
				return nil, err
			}
			return fieldsOutput("sip", fields), nil
		})
	},
}

var sipCallCmd = &cobra.Command{
	Use:   "call <uri>",
	Short: "Place a test call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			fields, err := cgi.NewSipModule(t).Dial(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return fieldsOutput("sip", fields), nil
		})
	},
}

func fieldsOutput(name string, fields *protocol.Fields) *output {
	if fields.Len() == 1 && fields.Has(protocol.MessageKey) {
		msg := fields.Value(protocol.MessageKey)
		if msg == "" {
			msg = "ok"
		}
		return textOutput("%s", msg)
	}
	return &output{Text: cgi.FormatFields(name, fields), Data: fields}
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a JPEG snapshot from the camera",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(imageOutput, 0755); err != nil {
			return err
		}
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, host string) (*output, error) {
			img, err := cgi.NewImagesModule(t).Snapshot(ctx, imageChannel)
			if err != nil {
				return nil, err
			}
			path := filepath.Join(imageOutput, host+".jpg")
			if err := os.WriteFile(path, img, 0644); err != nil {
				return nil, err
			}
			return textOutput("%s (%d bytes)", path, len(img)), nil
		})
	},
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Manage the HTTPS certificate",
}

var certCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Generate a self-signed certificate",
	Example: `  bewardctl cert create --param CommonName=lobby.example.org --param Days=3650 --host 192.168.10.21`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseAssignments(certParams)
		if err != nil {
			return err
		}
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewHTTPSModule(t)
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			m.UpdateCertParams(params)
			if err := m.CreateCert(ctx); err != nil {
				return nil, err
			}
			return textOutput("certificate created"), nil
		})
	},
}

var certDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the installed certificate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			if err := cgi.NewHTTPSModule(t).DeleteCert(ctx); err != nil {
				return nil, err
			}
			return textOutput("certificate deleted"), nil
		})
	},
}

var certDeleteRequestCmd = &cobra.Command{
	Use:   "delete-request",
	Short: "Delete the pending certificate request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			if err := cgi.NewHTTPSModule(t).DeleteRequest(ctx); err != nil {
				return nil, err
			}
			return textOutput("certificate request deleted"), nil
		})
	},
}

var apartmentCmd = &cobra.Command{
	Use:   "apartment",
	Short: "Apartment parameters and codes",
}

var apartmentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the parameters of one apartment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewApartmentModule(t, aptNumber)
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			fields, err := m.Fields()
			if err != nil {
				return nil, err
			}
			return fieldsOutput("apartment "+m.Number(), fields), nil
		})
	},
}

var apartmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured apartments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			list, err := cgi.NewApartmentsModule(t).List(ctx)
			if err != nil {
				return nil, err
			}
			return &output{Text: cgi.FormatFields("apartments", protocol.FieldsFromMap(list)), Data: list}, nil
		})
	},
}

var apartmentGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new door or registration code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			m := cgi.NewApartmentModule(t, aptNumber)
			if err := m.Load(ctx); err != nil {
				return nil, err
			}
			if err := m.GenerateCode(ctx, aptParam); err != nil {
				return nil, err
			}
			code, _ := m.Value(aptParam)
			return textOutput("%s %s", aptParam, code), nil
		})
	},
}

// checkCmd verifies that every target answers and accepts the credentials
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check reachability and credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sweep(cmd, func(ctx context.Context, t cgi.Transport, _ string) (*output, error) {
			client, ok := t.(interface{ Ping(context.Context) error })
			if !ok {
				return nil, fmt.Errorf("transport cannot ping")
			}
			if err := client.Ping(ctx); err != nil {
				return nil, err
			}
			return textOutput("reachable"), nil
		})
	},
}
