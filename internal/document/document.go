// Package document loads and saves the inventory tree embedded in a setting or
// actor JSON document. Only the document's "inventory" field is touched.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InventoryKey is the document field holding the top-level item list.
const InventoryKey = "inventory"

// Document is a JSON object whose fields other than InventoryKey are kept
// verbatim.
type Document map[string]json.RawMessage

// Parse decodes a JSON object. Empty input yields an empty document.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if d == nil {
		d = Document{}
	}
	return d, nil
}

// Inventory returns the raw inventory field.
func (d Document) Inventory() (json.RawMessage, bool) {
	raw, ok := d[InventoryKey]
	return raw, ok
}

// SetInventory replaces the inventory field.
func (d Document) SetInventory(raw json.RawMessage) {
	d[InventoryKey] = raw
}

// Encode renders the document as indented JSON.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]json.RawMessage(d)); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
