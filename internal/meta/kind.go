package meta

import "strings"

// Kind — семантический тип значения колонки.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt32
	KindInt64
	KindInt16
	KindInt8
	KindBool
	KindText
	KindReal32
	KindReal64
	KindBlob
	KindEnum
	KindDate
	KindReference
)

var kindNames = map[Kind]string{
	KindInvalid:   "invalid",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindInt16:     "int16",
	KindInt8:      "int8",
	KindBool:      "bool",
	KindText:      "text",
	KindReal32:    "real32",
	KindReal64:    "real64",
	KindBlob:      "blob",
	KindEnum:      "enum",
	KindDate:      "date",
	KindReference: "reference",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Scalar сообщает, входит ли тип в набор напрямую поддерживаемых скаляров.
// Reference скаляром не считается.
func (k Kind) Scalar() bool {
	switch k {
	case KindInt32, KindInt64, KindInt16, KindInt8, KindBool,
		KindText, KindReal32, KindReal64, KindBlob, KindEnum, KindDate:
		return true
	}
	return false
}

// Integer — целочисленные типы (в том числе для проверки диапазона).
func (k Kind) Integer() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// ParseKind разбирает имя типа из описаний (DSL, конфиги). Синонимы: int, string, float.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int8":
		return KindInt8, true
	case "int16":
		return KindInt16, true
	case "int32":
		return KindInt32, true
	case "int64", "int", "long":
		return KindInt64, true
	case "bool", "boolean":
		return KindBool, true
	case "text", "string":
		return KindText, true
	case "real32":
		return KindReal32, true
	case "real64", "float", "double":
		return KindReal64, true
	case "blob", "bytes":
		return KindBlob, true
	case "enum":
		return KindEnum, true
	case "date", "datetime":
		return KindDate, true
	case "ref", "reference":
		return KindReference, true
	}
	return KindInvalid, false
}

// Storage — класс хранения колонки в таблице.
type Storage string

const (
	StorageNumber Storage = "NUMBER"
	StorageText   Storage = "TEXT"
	StorageReal   Storage = "REAL"
	StorageBlob   Storage = "BLOB"
)

// StorageOf возвращает класс хранения для скалярного типа.
// Для Reference класс определяется полем, на которое ссылается внешний ключ,
// поэтому здесь возвращается NUMBER (идентификатор).
func StorageOf(k Kind) (Storage, bool) {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64, KindBool, KindDate, KindReference:
		return StorageNumber, true
	case KindText, KindEnum:
		return StorageText, true
	case KindReal32, KindReal64:
		return StorageReal, true
	case KindBlob:
		return StorageBlob, true
	}
	return "", false
}
