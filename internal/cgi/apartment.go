package cgi

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/logging"
)

// Apartment code parameters accepted by GenerateCode.
const (
	DoorCode = "DoorCode"
	RegCode  = "RegCode"
)

const apartmentPath = "cgi-bin/apartment_cgi"

// ApartmentModule holds the settings of one apartment on apartment_cgi.
type ApartmentModule struct {
	*Module
	number string
}

// NewApartmentModule creates the module for apartment number. An empty
// number selects apartment "1".
func NewApartmentModule(t Transport, number string) *ApartmentModule {
	if number == "" {
		number = "1"
	}
	return &ApartmentModule{
		Module: New(t, "apartment", apartmentPath, WithParam("Number", number)),
		number: number,
	}
}

// Number returns the apartment number.
func (a *ApartmentModule) Number() string { return a.number }

// GenerateCode asks the panel to generate a new door opening code
// (DoorCode) or key registration code (RegCode), then reloads the module so
// the new value is visible.
func (a *ApartmentModule) GenerateCode(ctx context.Context, param string) error {
	if param != DoorCode && param != RegCode {
		return NewUnsupportedError(a.name, "generate "+param)
	}
	if !a.loaded {
		return fmt.Errorf("%s: %w", a.name, ErrNotLoaded)
	}

	params := a.fields.Values()
	for k, v := range a.params {
		params[k] = append([]string(nil), v...)
	}
	params.Set("action", "set")
	params.Set(param, "generate")

	reply, err := a.transport.Do(ctx, postRequest(a.path, params))
	if err != nil {
		return err
	}
	if reply.StatusCode != http.StatusOK {
		return NewTransportError(reply.StatusCode, fmt.Sprintf("Error, %d", reply.StatusCode))
	}
	logging.Debug("apartment code generated", zap.String("apartment", a.number), zap.String("param", param))
	return a.Load(ctx)
}

// ApartmentsModule lists all configured apartments (action=list).
type ApartmentsModule struct {
	*Module
}

// NewApartmentsModule creates the read-only apartment list module.
func NewApartmentsModule(t Transport) *ApartmentsModule {
	return &ApartmentsModule{Module: New(t, "apartments", apartmentPath, WithLoadAction("list"), ReadOnly())}
}

// List loads and returns the apartment table.
func (a *ApartmentsModule) List(ctx context.Context) (map[string]string, error) {
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	return a.Get()
}
