package cgi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/beward-tools/bewardctl/internal/keys"
	"github.com/beward-tools/bewardctl/internal/logging"
	"github.com/beward-tools/bewardctl/internal/protocol"
)

// KeysSection is the dump section holding the key database. A dump that
// carries both databases stores the MIFARE keys under MifareKeysSection.
const (
	KeysSection       = "Keys"
	MifareKeysSection = "MifareKeys"
)

const (
	rfidPath   = "cgi-bin/rfid_cgi"
	mifarePath = "cgi-bin/mifare_cgi"
)

// KeysModule manages the credential database of rfid_cgi (RFID variant)
// or mifare_cgi (MIFARE variant).
type KeysModule struct {
	*Module
	variant keys.Variant
	db      []*keys.Key

	// restored is set when RestoreFrom replaced db from a dump.
	restored bool
}

// NewKeysModule creates a keys module for variant v.
func NewKeysModule(t Transport, v keys.Variant) *KeysModule {
	if v == keys.MIFARE {
		return &KeysModule{Module: New(t, "mifare", mifarePath), variant: v}
	}
	return &KeysModule{Module: New(t, "rfid", rfidPath), variant: keys.RFID}
}

// DetectKeysModule returns the MIFARE module when the panel offers
// mifare_cgi and falls back to the RFID module otherwise. The returned
// module has its parameters loaded but not its keys.
func DetectKeysModule(ctx context.Context, t Transport) (*KeysModule, error) {
	mifare := NewKeysModule(t, keys.MIFARE)
	err := mifare.Module.Load(ctx)
	if err == nil {
		return mifare, nil
	}
	if !IsProtocolError(err) && !IsTransportError(err) {
		return nil, err
	}
	logging.Debug("mifare_cgi unavailable, using rfid_cgi", zap.Error(err))

	rfid := NewKeysModule(t, keys.RFID)
	if err := rfid.Module.Load(ctx); err != nil {
		return nil, err
	}
	return rfid, nil
}

// Variant returns the wire variant used by this endpoint.
func (k *KeysModule) Variant() keys.Variant { return k.variant }

// Load fetches the module parameters and then exports the key database.
func (k *KeysModule) Load(ctx context.Context) error {
	if err := k.Module.Load(ctx); err != nil {
		return err
	}
	return k.LoadKeys(ctx)
}

// LoadKeys exports the key database. Every non-empty line is decoded as a
// key; lines that fail to decode are logged and skipped. A database of a
// single key arrives as the message slot and is accepted when it decodes.
func (k *KeysModule) LoadKeys(ctx context.Context) error {
	resp, err := k.send(ctx, getRequest(k.path, url.Values{"action": {"export"}}))
	if err != nil {
		return err
	}
	if err := CheckReply(resp); err != nil {
		return err
	}

	if msg := resp.Message(); msg != "" && resp.Fields.Len() == 1 {
		key, err := keys.Decode(msg)
		if err != nil {
			return NewProtocolError(MsgParsingError + msg)
		}
		k.db = []*keys.Key{key}
		return nil
	}
	if msg := resp.Message(); msg != "" {
		return NewProtocolError(MsgParsingError + msg)
	}

	var loaded []*keys.Key
	resp.Fields.Each(func(_, v string) {
		if v == "" {
			return
		}
		key, err := keys.Decode(v)
		if err != nil {
			logging.Warn("skipping malformed key",
				zap.String("module", k.name),
				zap.String("key", v),
				zap.Error(err),
			)
			return
		}
		loaded = append(loaded, key)
	})
	k.db = loaded
	return nil
}

// Keys returns the loaded keys.
func (k *KeysModule) Keys() []*keys.Key {
	return append([]*keys.Key(nil), k.db...)
}

// KeyParams returns the loaded keys as field maps of variant v.
func (k *KeysModule) KeyParams(v keys.Variant) []map[string]string {
	out := make([]map[string]string, len(k.db))
	for i, key := range k.db {
		out[i] = key.Params(v)
	}
	return out
}

// ReplaceKeys replaces the local key database. Nothing is sent until Upload.
func (k *KeysModule) ReplaceKeys(ks []*keys.Key) {
	k.db = append([]*keys.Key(nil), ks...)
}

// LoadKeyStrings decodes lines into the local key database.
func (k *KeysModule) LoadKeyStrings(lines []string) error {
	decoded, err := keys.DecodeAll(lines)
	if err != nil {
		return NewDecodeError(err)
	}
	k.ReplaceKeys(decoded)
	return nil
}

// Upload replaces the device database with the local keys through a
// keys.csv import. The device must answer "OK".
func (k *KeysModule) Upload(ctx context.Context) error {
	req := &Request{
		Method: http.MethodPost,
		Path:   k.path,
		Params: url.Values{"action": {"import"}},
		Files: []File{{
			Field:    "file",
			Filename: "keys.csv",
			Content:  keys.EncodeCSV(k.db, k.variant),
		}},
		Timeout: ImportTimeout,
	}

	resp, err := k.call(ctx, req)
	if err != nil {
		return err
	}
	if msg := resp.Message(); msg != "OK" {
		return NewProtocolError(MsgParsingError + msg)
	}
	return nil
}

// AddKey adds one key on the device and to the local database.
func (k *KeysModule) AddKey(ctx context.Context, key *keys.Key) error {
	params := url.Values{"action": {"add"}}
	for name, value := range key.Params(k.variant) {
		params.Set(name, value)
	}
	if err := k.command(ctx, params); err != nil {
		return err
	}
	k.db = append(k.db, key)
	return nil
}

// DeleteKey removes the key with the given id on the device and locally.
func (k *KeysModule) DeleteKey(ctx context.Context, id string) error {
	params := url.Values{"action": {"delete"}, keys.FieldKey: {id}}
	if err := k.command(ctx, params); err != nil {
		return err
	}
	kept := k.db[:0]
	for _, key := range k.db {
		if key.ID() != id {
			kept = append(kept, key)
		}
	}
	k.db = kept
	return nil
}

func (k *KeysModule) command(ctx context.Context, params url.Values) error {
	resp, err := k.Call(ctx, http.MethodGet, params)
	if err != nil {
		return err
	}
	if resp.Contains(notDefinedMarker) {
		return NewProtocolError(MsgModuleNotDefined)
	}
	if msg := resp.Message(); msg != "" && msg != "OK" {
		return NewProtocolError(MsgParsingError + msg)
	}
	return nil
}

// DumpTo stores the module parameters and the key database. RFID keys go
// to the Keys section and MIFARE keys to the MifareKeys section, so a dump
// of both modules keeps both databases.
func (k *KeysModule) DumpTo(doc *Document) error {
	if err := k.Module.DumpTo(doc); err != nil {
		return err
	}
	return doc.Put(k.dumpSection(), k.orderedKeys(k.variant))
}

// RestoreFrom applies the module parameters and replaces the local keys
// with the module's key section. A key that fails to decode fails the
// restore and leaves the local keys untouched.
func (k *KeysModule) RestoreFrom(doc *Document) error {
	if err := k.Module.RestoreFrom(doc); err != nil {
		return err
	}
	return k.restoreKeys(doc)
}

// Restored reports whether the last RestoreFrom or LoadKeysDump replaced
// the local keys. Only then is there a database to upload.
func (k *KeysModule) Restored() bool { return k.restored }

// DumpKeys returns {"Keys": [...]} with keys of variant v.
func (k *KeysModule) DumpKeys(v keys.Variant) ([]byte, error) {
	doc := NewDocument()
	if err := doc.Put(KeysSection, k.orderedKeys(v)); err != nil {
		return nil, err
	}
	return doc.MarshalJSON()
}

// LoadKeysDump replaces the local keys with the key section of data.
func (k *KeysModule) LoadKeysDump(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	return k.restoreKeys(doc)
}

func (k *KeysModule) dumpSection() string {
	if k.variant == keys.MIFARE {
		return MifareKeysSection
	}
	return KeysSection
}

// restoreSection picks the section holding this module's keys. MIFARE
// modules read a plain Keys section only when the dump has no RFID module
// claiming it.
func (k *KeysModule) restoreSection(doc *Document) (string, bool) {
	if k.variant != keys.MIFARE {
		return KeysSection, doc.Has(KeysSection)
	}
	if doc.Has(MifareKeysSection) {
		return MifareKeysSection, true
	}
	if doc.Has(KeysSection) && !doc.Has("rfid") {
		return KeysSection, true
	}
	return "", false
}

func (k *KeysModule) restoreKeys(doc *Document) error {
	k.restored = false
	section, ok := k.restoreSection(doc)
	if !ok {
		logging.Warn("no keys found in dump", zap.String("module", k.name))
		return nil
	}

	var raw []map[string]any
	if _, err := doc.Get(section, &raw); err != nil {
		return NewDecodeError(err)
	}
	if len(raw) == 0 {
		logging.Warn("empty key section in dump", zap.String("module", k.name), zap.String("section", section))
		return nil
	}

	restored := make([]*keys.Key, 0, len(raw))
	for i, params := range raw {
		key, err := keys.FromParams(params)
		if err != nil {
			return NewDecodeError(fmt.Errorf("%s[%d]: %w", section, i, err))
		}
		restored = append(restored, key)
	}
	k.db = restored
	k.restored = true
	return nil
}

func (k *KeysModule) orderedKeys(v keys.Variant) []*protocol.Fields {
	out := make([]*protocol.Fields, len(k.db))
	for i, key := range k.db {
		out[i] = protocol.FieldsFromMap(key.Params(v), keys.FieldOrder(v)...)
	}
	return out
}
