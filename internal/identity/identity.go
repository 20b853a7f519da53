// Package identity fingerprints correction steps.
//
// A step is identified by its kind plus a SHA-256 digest of its parameter
// object. Parameter objects are plain structs whose hashed fields carry a
// `param:"name"` tag; fields are serialized in declaration order as the
// concatenation of name and value.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Kind names one correction step type.
type Kind string

// Correction kinds, in the usual processing order.
const (
	KindRawDecoding      Kind = "raw_decoding"
	KindStaticGain       Kind = "static_gain_compensation"
	KindSourceLevel      Kind = "source_level_compensation"
	KindTVGGain          Kind = "tvg_gain_compensation"
	KindTransmissionLoss Kind = "transmission_loss_compensation"
	KindAreaCorrection   Kind = "area_correction"
	KindCalibration      Kind = "calibration"
	KindGeolocation      Kind = "geolocation"
)

var kinds = []Kind{
	KindRawDecoding,
	KindStaticGain,
	KindSourceLevel,
	KindTVGGain,
	KindTransmissionLoss,
	KindAreaCorrection,
	KindCalibration,
	KindGeolocation,
}

// Kinds returns every known kind in processing order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind accepts a kind name, tolerating hyphens for underscores.
func ParseKind(value string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, k := range kinds {
		if string(k) == normalized {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown process kind %q", value)
}

// Identity is the (kind, parameter hash) pair that identifies a node.
type Identity struct {
	Kind Kind
	Hash string
}

// Equal reports whether both kind and hash match.
func (id Identity) Equal(other Identity) bool {
	return id.Kind == other.Kind && id.Hash == other.Hash
}

func (id Identity) String() string {
	return string(id.Kind) + ":" + id.Hash
}

// Parameters is implemented by every per-kind parameter object.
type Parameters interface {
	Kind() Kind
}

// Of returns the identity of params.
func Of(params Parameters) (Identity, error) {
	hash, err := Hash(params)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Kind: params.Kind(), Hash: hash}, nil
}

// Hash serializes the tagged fields of params and returns the hex SHA-256.
func Hash(params any) (string, error) {
	pairs, err := fields(params)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.name)
		b.WriteString(p.value)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// Attributes returns the tagged fields of params as name/value strings,
// suitable for storing alongside a node.
func Attributes(params any) (map[string]string, error) {
	pairs, err := fields(params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		out[p.name] = p.value
	}
	return out, nil
}

type field struct {
	name  string
	value string
}

func fields(params any) ([]field, error) {
	v := reflect.ValueOf(params)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("nil parameter object")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("parameter object must be a struct, got %s", v.Kind())
	}
	t := v.Type()
	var out []field
	for i := range t.NumField() {
		sf := t.Field(i)
		name, ok := sf.Tag.Lookup("param")
		if !ok || name == "-" {
			continue
		}
		value, err := format(v.Field(i))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		out = append(out, field{name: name, value: value})
	}
	return out, nil
}

func format(v reflect.Value) (string, error) {
	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String(), nil
		}
	}
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := range v.Len() {
			s, err := format(v.Index(i))
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	default:
		return "", fmt.Errorf("unsupported parameter type %s", v.Type())
	}
}
