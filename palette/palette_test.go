package palette

import "testing"

func makeRaw() []byte {
	raw := make([]byte, EntryCount*3)
	for i := 0; i < EntryCount; i++ {
		raw[i*3] = byte(i)
		raw[i*3+1] = byte(i)
		raw[i*3+2] = byte(i)
	}
	return raw
}

func TestDecode(t *testing.T) {
	p, err := Decode(makeRaw())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p[10].R != 10 {
		t.Fatalf("p[10].R = %d, want 10", p[10].R)
	}
}

func TestDecodeTooShort(t *testing.T) {
	if _, err := Decode(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short palette data")
	}
}

func TestTranslateFullbrightAndTransparency(t *testing.T) {
	p, _ := Decode(makeRaw())
	indices := []byte{0, 230, TransparentIndex}
	img, fullbright := p.Translate(indices, 3, 1, true)

	if fullbright[0] != 0 || fullbright[1] == 0 {
		t.Fatalf("fullbright mask = %v, want [0, nonzero, x]", fullbright)
	}
	a := img.RGBAAt(2, 0).A
	if a != 0 {
		t.Fatalf("transparent index alpha = %d, want 0", a)
	}
}
