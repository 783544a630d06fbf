package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// FieldKind is the wire type of one positional event field.
type FieldKind int

const (
	KindAddress FieldKind = iota
	KindUint
	KindString
	KindUintList
)

// FieldDef names one position of an event tuple.
type FieldDef struct {
	Name string
	Kind FieldKind
}

// EventSpec fixes the shape of one named event: decode validates every tuple
// against it, so a wrong arity or type is caught before anything is applied.
type EventSpec struct {
	Name   string
	Fields []FieldDef
}

// Event is one raw positional tuple from the historical event log.
type Event struct {
	TxID      string
	Round     uint64
	Timestamp int64
	Raw       []any
}

// Record is a decoded event with fields accessible by name.
type Record struct {
	TxID      string
	Round     uint64
	Timestamp int64

	name      string
	addrs     map[string]string
	uints     map[string]string
	strs      map[string]string
	uintLists map[string][]string
}

// Name returns the event name the record was decoded as.
func (r *Record) Name() string { return r.name }

// Addr returns an address field.
func (r *Record) Addr(field string) string { return r.addrs[field] }

// Uint returns a uint field as its canonical decimal string.
func (r *Record) Uint(field string) string { return r.uints[field] }

// Uint64 parses a uint field into a machine word. Only round- and id-shaped
// fields fit; amounts can exceed 64 bits and must go through Uint.
func (r *Record) Uint64(field string) uint64 {
	v, _ := strconv.ParseUint(r.uints[field], 10, 64)
	return v
}

// Str returns a string field.
func (r *Record) Str(field string) string { return r.strs[field] }

// UintList returns a uint-list field as decimal strings.
func (r *Record) UintList(field string) []string { return r.uintLists[field] }

// Decode validates one raw tuple against its spec and produces a Record.
// Wrong arity or a field of the wrong type is a decode failure; callers must
// not partially apply a malformed event.
func Decode(spec EventSpec, ev Event) (*Record, error) {
	if len(ev.Raw) != len(spec.Fields) {
		return nil, fmt.Errorf("event %s tx %s: expected %d fields, got %d",
			spec.Name, ev.TxID, len(spec.Fields), len(ev.Raw))
	}

	rec := &Record{
		TxID:      ev.TxID,
		Round:     ev.Round,
		Timestamp: ev.Timestamp,
		name:      spec.Name,
		addrs:     make(map[string]string),
		uints:     make(map[string]string),
		strs:      make(map[string]string),
		uintLists: make(map[string][]string),
	}

	for i, def := range spec.Fields {
		raw := ev.Raw[i]

		switch def.Kind {
		case KindAddress:
			s, ok := raw.(string)
			if !ok {
				return nil, decodeTypeErr(spec.Name, ev.TxID, def.Name, "address", raw)
			}
			rec.addrs[def.Name] = s

		case KindUint:
			s, err := coerceUint(raw)
			if err != nil {
				return nil, decodeTypeErr(spec.Name, ev.TxID, def.Name, "uint", raw)
			}
			rec.uints[def.Name] = s

		case KindString:
			s, ok := raw.(string)
			if !ok {
				return nil, decodeTypeErr(spec.Name, ev.TxID, def.Name, "string", raw)
			}
			rec.strs[def.Name] = s

		case KindUintList:
			items, ok := raw.([]any)
			if !ok {
				return nil, decodeTypeErr(spec.Name, ev.TxID, def.Name, "uint list", raw)
			}
			list := make([]string, 0, len(items))
			for _, item := range items {
				s, err := coerceUint(item)
				if err != nil {
					return nil, decodeTypeErr(spec.Name, ev.TxID, def.Name, "uint list", raw)
				}
				list = append(list, s)
			}
			rec.uintLists[def.Name] = list
		}
	}

	return rec, nil
}

// coerceUint normalizes the JSON representations of a uint field (string,
// json.Number or float64) into a canonical decimal string. Amounts are
// arbitrary-precision on the wire, so validation must not cap at 64 bits.
func coerceUint(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return coerceUintText(v)
	case json.Number:
		return coerceUintText(v.String())
	case float64:
		n, acc := big.NewFloat(v).Int(nil)
		if acc != big.Exact || n.Sign() < 0 {
			return "", fmt.Errorf("not a uint: %v", v)
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("unsupported uint representation %T", raw)
	}
}

func coerceUintText(s string) (string, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("not a uint: %q", s)
	}
	return n.String(), nil
}

func decodeTypeErr(event, txid, field, want string, got any) error {
	return fmt.Errorf("event %s tx %s: field %s is not a %s (got %T)", event, txid, field, want, got)
}
