package marshal

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tabula/internal/meta"
)

// encode приводит значение поля к значению строки по классу хранения:
// целые, bool и даты → int64, текст → string, вещественные → float64, blob → []byte.
func encode(kind meta.Kind, enum []string, v any) (any, error) {
	if kind.Integer() {
		n, err := integerOf(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(kind, n); err != nil {
			return nil, err
		}
		return n, nil
	}
	switch kind {
	case meta.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case meta.KindDate:
		switch t := v.(type) {
		case time.Time:
			return dateMillis(t)
		case *time.Time:
			return dateMillis(*t)
		}
		return nil, fmt.Errorf("expected time.Time, got %T", v)
	case meta.KindText:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case meta.KindEnum:
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case fmt.Stringer:
			s = t.String()
		default:
			return nil, fmt.Errorf("expected enum value, got %T", v)
		}
		if err := checkEnum(enum, s); err != nil {
			return nil, err
		}
		return s, nil
	case meta.KindReal32:
		switch t := v.(type) {
		case float32:
			return float64(t), nil
		case float64:
			if math.Abs(t) > math.MaxFloat32 && !math.IsInf(t, 0) {
				return nil, fmt.Errorf("value %v overflows real32", t)
			}
			return float64(float32(t)), nil
		}
		return nil, fmt.Errorf("expected float32, got %T", v)
	case meta.KindReal64:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		}
		return nil, fmt.Errorf("expected float64, got %T", v)
	case meta.KindBlob:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("expected []byte, got %T", v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("kind %s is not stored directly", kind)
}

// decode — обратное приведение: значение из драйвера или JSON → объявленный Go-тип.
// Вход принимается мягко (float64 из JSON, строки с числами, RFC3339 для дат).
func decode(kind meta.Kind, enum []string, v any) (any, error) {
	switch kind {
	case meta.KindInt8, meta.KindInt16, meta.KindInt32, meta.KindInt64:
		n, err := toIntLenient(v)
		if err != nil {
			return nil, err
		}
		if err := checkRange(kind, n); err != nil {
			return nil, err
		}
		switch kind {
		case meta.KindInt8:
			return int8(n), nil
		case meta.KindInt16:
			return int16(n), nil
		case meta.KindInt32:
			return int32(n), nil
		}
		return n, nil
	case meta.KindBool:
		return toBoolLenient(v)
	case meta.KindDate:
		return toTimeLenient(v)
	case meta.KindText:
		return toStringLenient(v)
	case meta.KindEnum:
		s, err := toStringLenient(v)
		if err != nil {
			return nil, err
		}
		if err := checkEnum(enum, s); err != nil {
			return nil, err
		}
		return s, nil
	case meta.KindReal32:
		f, err := toFloatLenient(v)
		if err != nil {
			return nil, err
		}
		return float32(f), nil
	case meta.KindReal64:
		return toFloatLenient(v)
	case meta.KindBlob:
		switch t := v.(type) {
		case []byte:
			return append([]byte(nil), t...), nil
		case string:
			return []byte(t), nil
		}
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
	return nil, fmt.Errorf("kind %s is not stored directly", kind)
}

// dateMillis: дата хранится в миллисекундах, более мелкая точность не усекается молча.
func dateMillis(t time.Time) (int64, error) {
	if t.Nanosecond()%int(time.Millisecond) != 0 {
		return 0, fmt.Errorf("date %s has sub-millisecond precision", t.Format(time.RFC3339Nano))
	}
	return t.UnixMilli(), nil
}

func integerOf(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, errors.New("value overflows int64")
		}
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, errors.New("value overflows int64")
		}
		return int64(t), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func toIntLenient(v any) (int64, error) {
	if n, err := integerOf(v); err == nil {
		return n, nil
	}
	switch t := v.(type) {
	case float64:
		// JSON числа приходят как float64 — проверяем целостность
		if t != math.Trunc(t) || math.Abs(t) >= 1<<63 {
			return 0, errors.New("must be integer")
		}
		return int64(t), nil
	case float32:
		return toIntLenient(float64(t))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errors.New("must be integer")
		}
		return n, nil
	case []byte:
		return toIntLenient(string(t))
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("must be integer, got %T", v)
}

func toFloatLenient(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, errors.New("must be float")
		}
		return f, nil
	case []byte:
		return toFloatLenient(string(t))
	}
	if n, err := integerOf(v); err == nil {
		return float64(n), nil
	}
	return 0, fmt.Errorf("must be float, got %T", v)
}

func toBoolLenient(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}
		return false, errors.New("must be boolean")
	case float64:
		return t != 0, nil
	}
	if n, err := integerOf(v); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("must be boolean, got %T", v)
}

func toStringLenient(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("must be string, got %T", v)
}

func toTimeLenient(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), nil
		}
		if ts, err := time.Parse("2006-01-02", s); err == nil {
			return ts.UTC(), nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Time{}, errors.New("must be RFC3339 datetime")
	}
	n, err := toIntLenient(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be datetime, got %T", v)
	}
	return time.UnixMilli(n).UTC(), nil
}

func checkRange(kind meta.Kind, n int64) error {
	var lo, hi int64
	switch kind {
	case meta.KindInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case meta.KindInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case meta.KindInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return nil
	}
	if n < lo || n > hi {
		return fmt.Errorf("value %d out of range for %s", n, kind)
	}
	return nil
}

func checkEnum(values []string, s string) error {
	if len(values) == 0 {
		return nil
	}
	for _, ev := range values {
		if s == ev {
			return nil
		}
	}
	return fmt.Errorf("value '%s' is not allowed", s)
}
