package cgi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/logging"
	"github.com/beward-tools/bewardctl/internal/protocol"
)

// RestartModule reboots the panel through restart_cgi.
type RestartModule struct {
	*Module
}

// NewRestartModule creates the restart_cgi module.
func NewRestartModule(t Transport) *RestartModule {
	return &RestartModule{Module: New(t, "restart", "cgi-bin/restart_cgi", CommandOnly())}
}

// Restart reboots the panel.
func (r *RestartModule) Restart(ctx context.Context) error {
	_, err := r.Call(ctx, http.MethodGet, nil)
	return err
}

// FactoryDefaultModule resets the panel configuration.
type FactoryDefaultModule struct {
	*Module
}

// NewFactoryDefaultModule creates the factorydefault_cgi module.
func NewFactoryDefaultModule(t Transport) *FactoryDefaultModule {
	return &FactoryDefaultModule{Module: New(t, "factorydefault", "cgi-bin/factorydefault_cgi", CommandOnly())}
}

// Reset restores factory settings, keeping network and apartment settings.
func (f *FactoryDefaultModule) Reset(ctx context.Context) error {
	_, err := f.Call(ctx, http.MethodGet, nil)
	return err
}

// HardReset restores factory settings through hardfactorydefault_cgi.
func (f *FactoryDefaultModule) HardReset(ctx context.Context) error {
	_, err := f.CallPath(ctx, http.MethodGet, "cgi-bin/hardfactorydefault_cgi", nil)
	return err
}

// UpgradeModule flashes firmware through upgrade_cgi.
type UpgradeModule struct {
	*Module
}

// NewUpgradeModule creates the upgrade_cgi module.
func NewUpgradeModule(t Transport) *UpgradeModule {
	return &UpgradeModule{Module: New(t, "upgrade", "cgi-bin/upgrade_cgi", CommandOnly())}
}

// Upgrade uploads a firmware image. The panel reboots on success.
func (u *UpgradeModule) Upgrade(ctx context.Context, filename string, image []byte) error {
	logging.Info("uploading firmware", zap.String("file", filename), zap.Int("size", len(image)))
	_, err := u.call(ctx, &Request{
		Method:  http.MethodPost,
		Path:    u.path,
		Params:  url.Values{"action": {"upgrade"}},
		Files:   []File{{Field: "file", Filename: filename, Content: image}},
		Timeout: UpgradeTimeout,
	})
	return err
}

// OSD label kinds.
const (
	OSDLabelDateTime = 1 // date, time, bitrate and week day
	OSDLabelTitle    = 2
)

const (
	osdStepPx      = 8.0
	osdMaxFailures = 500
)

var osdDirections = []string{"Up", "Down", "Right", "Left"}

// OSDPositionModule moves on-screen display labels through osdposition_cgi.
type OSDPositionModule struct {
	*Module
}

// NewOSDPositionModule creates the osdposition_cgi module.
func NewOSDPositionModule(t Transport) *OSDPositionModule {
	return &OSDPositionModule{Module: New(t, "osdposition", "cgi-bin/osdposition_cgi", CommandOnly())}
}

// Move shifts a label by one step of 8 pixels and reports whether the
// device accepted it.
func (o *OSDPositionModule) Move(ctx context.Context, direction string, channel, label int) (bool, error) {
	params := url.Values{
		"action":  {direction},
		"channel": {strconv.Itoa(channel)},
		"value":   {strconv.Itoa(label)},
	}
	reply, err := o.transport.Do(ctx, getRequest(o.path, params))
	if err != nil {
		if ctx.Err() != nil {
			return false, err
		}
		logging.Debug("osd step failed", zap.Error(err))
		return false, nil
	}
	return reply.StatusCode == http.StatusOK, nil
}

// ChangePosition moves a label by shiftPx pixels, rounded half to even to
// whole steps.
// Failed steps are retried until they succeed or more than 500 are
// outstanding.
func (o *OSDPositionModule) ChangePosition(ctx context.Context, label int, direction string, channel int, shiftPx float64) error {
	dir, err := normalizeDirection(direction)
	if err != nil {
		return err
	}
	if label != OSDLabelDateTime && label != OSDLabelTitle {
		return NewDecodeError(fmt.Errorf("label %d must be 1 or 2", label))
	}
	if channel < 0 || channel > 3 {
		return NewDecodeError(fmt.Errorf("channel %d must be 0..3", channel))
	}

	steps := int(math.RoundToEven(shiftPx / osdStepPx))
	pending := 0
	for range steps {
		ok, err := o.Move(ctx, dir, channel, label)
		if err != nil {
			return err
		}
		if !ok {
			pending++
		}
	}
	for pending > 0 {
		ok, err := o.Move(ctx, dir, channel, label)
		if err != nil {
			return err
		}
		if ok {
			pending--
		} else if pending++; pending > osdMaxFailures {
			return NewProtocolError("OSD position not changed")
		}
	}
	return nil
}

func normalizeDirection(s string) (string, error) {
	for _, d := range osdDirections {
		if strings.EqualFold(s, d) {
			return d, nil
		}
	}
	return "", NewDecodeError(fmt.Errorf("direction %q must be one of %s", s, strings.Join(osdDirections, ", ")))
}

// ImagesModule fetches JPEG snapshots through images_cgi.
type ImagesModule struct {
	*Module
}

// NewImagesModule creates the images_cgi module.
func NewImagesModule(t Transport) *ImagesModule {
	return &ImagesModule{Module: New(t, "images", "cgi-bin/images_cgi", CommandOnly())}
}

// Snapshot returns the current frame of the video channel.
func (i *ImagesModule) Snapshot(ctx context.Context, channel int) ([]byte, error) {
	reply, err := i.transport.Do(ctx, getRequest(i.path, url.Values{"channel": {strconv.Itoa(channel)}}))
	if err != nil {
		return nil, err
	}
	if reply.StatusCode != http.StatusOK {
		resp := protocol.Parse(reply.StatusCode, reply.Body)
		return nil, NewTransportError(reply.StatusCode, messageOr(resp, MsgUnknownError))
	}
	return reply.Body, nil
}
