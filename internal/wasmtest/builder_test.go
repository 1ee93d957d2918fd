package wasmtest

import (
	"bytes"
	"testing"
)

func TestEmptyModule(t *testing.T) {
	got := New().Bytes()
	if !bytes.Equal(got, header) {
		t.Errorf("empty module = %x, want %x", got, header)
	}
}

func TestLEB128(t *testing.T) {
	tests := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{16, []byte{0x10}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-1, []byte{0x7f}},
		{1024, []byte{0x80, 0x08}},
	}
	for _, tt := range tests {
		if got := appendI32(nil, tt.v); !bytes.Equal(got, tt.want) {
			t.Errorf("appendI32(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}

	if got := appendU32(nil, 624485); !bytes.Equal(got, []byte{0xe5, 0x8e, 0x26}) {
		t.Errorf("appendU32(624485) = %x", got)
	}
}

func TestImportAfterFuncPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("ImportFunc after Func should panic")
		}
	}()

	b := New()
	b.Func(FuncType{}, OpEnd)
	b.ImportFunc("env", "late", FuncType{})
}
