package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func TestMaterialIdentityIncreases(t *testing.T) {
	a := NewMaterial()
	b := NewMaterial()
	if b.ID() <= a.ID() {
		t.Fatalf("ids not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestTypeBitsFromOptions(t *testing.T) {
	plain := NewMaterial()
	if plain.TypeBits() != 0 {
		t.Fatalf("plain material bits = %b", plain.TypeBits())
	}

	m := NewMaterial(
		WithNormalTexture(&common.TextureStagingData{Width: 1, Height: 1, Pixels: []byte{128, 128, 255, 255}}),
		WithEmissive([3]float32{1, 0.5, 0}),
	)
	if !m.TypeBits().Has(TypeNormalMapped | TypeEmissive) {
		t.Fatalf("bits = %b, want normal-mapped and emissive", m.TypeBits())
	}
}

func TestMaterialParamsMarshal(t *testing.T) {
	m := NewMaterial(WithBaseColor([4]float32{0.1, 0.2, 0.3, 1}), WithRoughness(0.25), WithTypeBits(TypeUnlit))
	p := m.Params()
	buf := p.Marshal()
	if len(buf) != p.Size() {
		t.Fatalf("marshal length %d != size %d", len(buf), p.Size())
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[32:36])); got != 0.25 {
		t.Fatalf("roughness = %v", got)
	}
	if got := binary.LittleEndian.Uint32(buf[36:40]); got != uint32(TypeUnlit) {
		t.Fatalf("flags = %d", got)
	}
}
