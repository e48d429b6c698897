package cart

import (
	"errors"
	"testing"
)

func TestNew_SelectsController(t *testing.T) {
	cases := []struct {
		cartType byte
		want     string
	}{
		{0x00, "*cart.ROMOnly"},
		{0x01, "*cart.MBC1"},
		{0x10, "*cart.MBC3"},
		{0x13, "*cart.MBC3"},
		{0x1B, "*cart.MBC5"},
	}
	for _, tc := range cases {
		rom := buildROM("TEST", tc.cartType, 0x01, 0x02, 64*1024)
		c, err := New(rom)
		if err != nil {
			t.Fatalf("type %#02x: New error: %v", tc.cartType, err)
		}
		var got string
		switch c.(type) {
		case *ROMOnly:
			got = "*cart.ROMOnly"
		case *MBC1:
			got = "*cart.MBC1"
		case *MBC3:
			got = "*cart.MBC3"
		case *MBC5:
			got = "*cart.MBC5"
		}
		if got != tc.want {
			t.Fatalf("type %#02x: controller got %s want %s", tc.cartType, got, tc.want)
		}
	}
}

func TestNew_RTCOnlyForRTCTypes(t *testing.T) {
	rom := buildROM("TEST", 0x10, 0x01, 0x02, 64*1024) // MBC3+RTC+RAM+BAT
	c, err := New(rom)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if m, ok := c.(*MBC3); !ok || !m.hasRTC {
		t.Fatalf("type 0x10 should build an RTC-capable MBC3")
	}

	rom = buildROM("TEST", 0x11, 0x01, 0x00, 64*1024)
	c, err = New(rom)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if m, ok := c.(*MBC3); !ok || m.hasRTC {
		t.Fatalf("type 0x11 should build a plain MBC3")
	}
}

func TestNew_RejectsTruncatedROM(t *testing.T) {
	if _, err := New(make([]byte, 0x120)); !errors.Is(err, ErrROMTooSmall) {
		t.Fatalf("truncated ROM: got %v want ErrROMTooSmall", err)
	}
}

func TestNew_RejectsUnsupportedType(t *testing.T) {
	rom := buildROM("TEST", 0xFE, 0x01, 0x00, 64*1024) // HuC3 territory
	if _, err := New(rom); !errors.Is(err, ErrUnsupportedMBC) {
		t.Fatalf("unsupported type: got %v want ErrUnsupportedMBC", err)
	}
}
