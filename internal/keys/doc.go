// Package keys converts access credentials between the comma-joined
// positional strings used by Beward rfid_cgi/mifare_cgi endpoints and
// structured Key records.
//
// Two wire variants exist. RFID records carry the key id and apartment:
//
//	00000041A1D8B3,12
//
// MIFARE records carry twelve fields in a fixed order:
//
//	Key,Type,ProtectedMode,CipherIndex,NewCipherEnable,NewCipherIndex,
//	Code,Sector,Apartment,Owner,AutoPersonalize,Service
//
// A record decoded from one token (bare id) or two tokens (id, apartment)
// is filled out to the full MIFARE form using fixed defaults, so every Key
// can be encoded in either variant.
//
// The package also reads the legacy EQM key export format, an INI-like file
// of KeyValueN/KeyApartmentN/KeyIndexN lines.
package keys
