package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"int8": KindInt8, "INT16": KindInt16, "int32": KindInt32, " int ": KindInt64,
		"bool": KindBool, "string": KindText, "real32": KindReal32, "float": KindReal64,
		"bytes": KindBlob, "enum": KindEnum, "date": KindDate, "ref": KindReference,
	}
	for in, want := range tests {
		got, ok := ParseKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseKind("money")
	assert.False(t, ok)
}

func TestStorageOf(t *testing.T) {
	tests := []struct {
		kind Kind
		want Storage
	}{
		{KindInt8, StorageNumber},
		{KindBool, StorageNumber},
		{KindDate, StorageNumber},
		{KindText, StorageText},
		{KindEnum, StorageText},
		{KindReal32, StorageReal},
		{KindBlob, StorageBlob},
	}
	for _, tt := range tests {
		got, ok := StorageOf(tt.kind)
		assert.True(t, ok, tt.kind.String())
		assert.Equal(t, tt.want, got, tt.kind.String())
	}
	_, ok := StorageOf(KindInvalid)
	assert.False(t, ok)
}

func TestKindClasses(t *testing.T) {
	assert.True(t, KindDate.Scalar())
	assert.False(t, KindReference.Scalar())
	assert.True(t, KindInt16.Integer())
	assert.False(t, KindReal64.Integer())
	assert.Equal(t, "invalid", Kind(99).String())
}

func TestFieldSpecDefaults(t *testing.T) {
	assert.Equal(t, OrderDesc, ParseOrder(" DESC "))
	assert.Equal(t, OrderAsc, ParseOrder("sideways"))

	f := FieldSpec{Name: "author"}
	assert.Equal(t, "author", f.ColumnName())
	assert.True(t, f.DefaultReference())

	f.Column, f.Reference = "writer_id", "name"
	assert.Equal(t, "writer_id", f.ColumnName())
	assert.False(t, f.DefaultReference())

	f.Reference = IdentityField
	assert.True(t, f.DefaultReference())
}
