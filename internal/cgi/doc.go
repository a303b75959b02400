// Package cgi implements the load/get/update/set contract shared by the CGI
// endpoints of Beward intercom panels, plus the endpoints that extend it.
//
// A Module is bound to one endpoint path and a Transport. Load issues
// action=get and keeps every data field of the reply; Update merges local
// changes into fields the device already reported; Set posts the complete
// set back with action=set:
//
//	ntp, _ := cgi.NewByName(client, "ntp")
//	if err := ntp.Load(ctx); err != nil {
//		return err
//	}
//	_ = ntp.Update(map[string]string{"ServerAddress": "pool.ntp.org"})
//	err := ntp.Set(ctx)
//
// # Specialised Modules
//
// Endpoints with extra behavior embed *Module and install decode or encode
// hooks: KeysModule (rfid_cgi, mifare_cgi), DateModule, UserCapabilitiesModule,
// ApartmentModule, SipModule, HTTPSModule and the video mask decoder.
// Command-only endpoints such as restart_cgi refuse the contract with
// ErrTypeUnsupported and expose their commands as methods instead.
//
// # Errors
//
// Every failure is a *DeviceError. Use the Is* predicates to branch on its
// ErrorType; the Message field carries the device's own text where it
// provided one.
//
// # Dumps
//
// A Document is an ordered JSON object with one section per module. Modules
// write their section with DumpTo and apply it with RestoreFrom; DumpModules
// and RestoreModules sweep several modules at once.
package cgi
