package keys

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Variant selects the wire layout of a key string.
type Variant int

const (
	RFID Variant = iota
	MIFARE
)

func (v Variant) String() string {
	switch v {
	case RFID:
		return "RFID"
	case MIFARE:
		return "MIFARE"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant accepts "rfid" or "mifare" in any case.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToUpper(s) {
	case "RFID":
		return RFID, nil
	case "MIFARE":
		return MIFARE, nil
	}
	return RFID, fmt.Errorf("unknown key variant %q", s)
}

// Field names in canonical MIFARE order.
const (
	FieldKey             = "Key"
	FieldType            = "Type"
	FieldProtectedMode   = "ProtectedMode"
	FieldCipherIndex     = "CipherIndex"
	FieldNewCipherEnable = "NewCipherEnable"
	FieldNewCipherIndex  = "NewCipherIndex"
	FieldCode            = "Code"
	FieldSector          = "Sector"
	FieldApartment       = "Apartment"
	FieldOwner           = "Owner"
	FieldAutoPersonalize = "AutoPersonalize"
	FieldService         = "Service"
)

var (
	mifareFields = []string{
		FieldKey, FieldType, FieldProtectedMode, FieldCipherIndex,
		FieldNewCipherEnable, FieldNewCipherIndex, FieldCode, FieldSector,
		FieldApartment, FieldOwner, FieldAutoPersonalize, FieldService,
	}
	rfidFields = []string{FieldKey, FieldApartment}
)

// hexRun is the minimal marker of a key id.
var hexRun = regexp.MustCompile(`(?i)[0-9a-f]{2,}`)

// Key types.
const (
	TypeUltralightC   = "0"
	TypeMifareClassic = "1"
	TypeMifarePlusSE  = "2"
	TypeMifarePlusX   = "3"
)

// FieldOrder returns the field names of variant v in wire order.
func FieldOrder(v Variant) []string {
	if v == RFID {
		return append([]string(nil), rfidFields...)
	}
	return append([]string(nil), mifareFields...)
}

// Key is a canonical credential record. Every field is kept as the string
// the device uses; a decoded Key always has all twelve fields set.
type Key struct {
	values map[string]string
}

// Decode parses a key string of 1, 2 or 12 comma-separated tokens.
//
// A single token is a bare id. Two tokens are id and apartment, with an
// empty apartment read as "0". Twelve tokens are assigned positionally.
// Fields absent from the input get defaults: Owner is "", Type and Sector
// are "1", everything else is "0". The token count is checked before the
// input is searched for a hex id.
func Decode(s string) (*Key, error) {
	tokens := strings.Split(s, ",")
	if n := len(tokens); n != 1 && n != 2 && n != len(mifareFields) {
		return nil, invalid(ReasonWrongCount, s)
	}
	if !hexRun.MatchString(s) {
		return nil, invalid(ReasonNotFound, s)
	}

	values := make(map[string]string, len(mifareFields))
	switch len(tokens) {
	case 1:
		values[FieldKey] = tokens[0]
	case 2:
		values[FieldKey] = tokens[0]
		values[FieldApartment] = tokens[1]
		if values[FieldApartment] == "" {
			values[FieldApartment] = "0"
		}
	default:
		for i, name := range mifareFields {
			values[name] = tokens[i]
		}
	}

	k := &Key{values: values}
	k.fillDefaults()
	return k, nil
}

// FromParams builds a Key from a decoded JSON object such as one entry of
// a key dump. Every value must be a string. Missing fields get the same
// defaults as Decode.
func FromParams(params map[string]any) (*Key, error) {
	values := make(map[string]string, len(mifareFields))
	for name, raw := range params {
		s, ok := raw.(string)
		if !ok {
			return nil, invalid(ReasonNotString, "")
		}
		values[name] = s
	}
	if !hexRun.MatchString(values[FieldKey]) {
		return nil, invalid(ReasonNotFound, values[FieldKey])
	}

	k := &Key{values: make(map[string]string, len(mifareFields))}
	for _, name := range mifareFields {
		if v, ok := values[name]; ok {
			k.values[name] = v
		}
	}
	k.fillDefaults()
	return k, nil
}

func (k *Key) fillDefaults() {
	for _, name := range mifareFields {
		if _, ok := k.values[name]; ok {
			continue
		}
		switch name {
		case FieldOwner:
			k.values[name] = ""
		case FieldType, FieldSector:
			k.values[name] = "1"
		default:
			k.values[name] = "0"
		}
	}
}

// ID returns the key UID.
func (k *Key) ID() string { return k.values[FieldKey] }

// Apartment returns the apartment the key is bound to.
func (k *Key) Apartment() string { return k.values[FieldApartment] }

// Get returns the named field or "" for unknown names.
func (k *Key) Get(field string) string { return k.values[field] }

// Set replaces a known field. Unknown field names are ignored.
func (k *Key) Set(field, value string) {
	if _, ok := k.values[field]; ok {
		k.values[field] = value
	}
}

// Encode joins the fields of variant v with ",".
func (k *Key) Encode(v Variant) string {
	names := mifareFields
	if v == RFID {
		names = rfidFields
	}
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = k.values[name]
	}
	return strings.Join(parts, ",")
}

// Params returns the fields of variant v as a map.
func (k *Key) Params(v Variant) map[string]string {
	names := mifareFields
	if v == RFID {
		names = rfidFields
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = k.values[name]
	}
	return out
}

func (k *Key) String() string {
	return k.Encode(MIFARE)
}

// MarshalJSON writes all twelve fields in canonical order.
func (k *Key) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range mifareFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", name)
		vb, err := json.Marshal(k.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object of string fields, see FromParams.
func (k *Key) UnmarshalJSON(data []byte) error {
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return err
	}
	decoded, err := FromParams(params)
	if err != nil {
		return err
	}
	*k = *decoded
	return nil
}

// EncodeCSV renders keys as the body of a keys.csv import file: one encoded
// key per line, each terminated by "\n".
func EncodeCSV(keys []*Key, v Variant) []byte {
	var buf bytes.Buffer
	for _, k := range keys {
		buf.WriteString(k.Encode(v))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
