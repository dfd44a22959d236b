package backup

import (
	"testing"
	"time"

	"github.com/blacktop/go-plist"
)

func TestKindFromFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags int
		want  Kind
	}{
		{"regular file", 1, RegularFile},
		{"directory", 2, Directory},
		{"symlink", 4, Symlink},
		{"zero", 0, UnknownKind},
		{"unknown bits", 8, UnknownKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kindFromFlags(tt.flags); got != tt.want {
				t.Errorf("kindFromFlags(%d) = %v, want %v", tt.flags, got, tt.want)
			}
		})
	}
}

func statBlob(t *testing.T, size, mtime, birth int64) []byte {
	t.Helper()
	blob, err := plist.Marshal(map[string]any{
		"$version":  100000,
		"$archiver": "NSKeyedArchiver",
		"$objects": []any{
			"$null",
			map[string]any{
				"Size":         size,
				"LastModified": mtime,
				"Birth":        birth,
				"Mode":         0o100644,
			},
		},
	}, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("failed to marshal stat blob: %v", err)
	}
	return blob
}

func TestDecodeStat(t *testing.T) {
	size, mtime, birth := decodeStat(statBlob(t, 1234, 1600000000, 1500000000))
	if size != 1234 {
		t.Errorf("size = %d, want 1234", size)
	}
	if want := time.Unix(1600000000, 0).UTC(); !mtime.Equal(want) {
		t.Errorf("mtime = %v, want %v", mtime, want)
	}
	if want := time.Unix(1500000000, 0).UTC(); !birth.Equal(want) {
		t.Errorf("birth = %v, want %v", birth, want)
	}
}

func TestDecodeStatBestEffort(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"empty blob", nil},
		{"garbage blob", []byte("definitely not a plist")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, mtime, birth := decodeStat(tt.blob)
			if size != 0 || !mtime.IsZero() || !birth.IsZero() {
				t.Errorf("decodeStat(%q) = (%d, %v, %v), want zero values", tt.blob, size, mtime, birth)
			}
		})
	}
}
