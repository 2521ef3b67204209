package light

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(LightTypePoint)
	if !l.Enabled() || l.Intensity() != 1 || l.Range() != 10 {
		t.Errorf("defaults = enabled %v intensity %v range %v", l.Enabled(), l.Intensity(), l.Range())
	}
	if l.Direction() != (mgl32.Vec3{0, -1, 0}) {
		t.Errorf("Direction = %v, want (0,-1,0)", l.Direction())
	}
}

func TestDirectionIsNormalized(t *testing.T) {
	l := NewLight(LightTypeDirectional, WithDirection(0, 0, -5))
	if l.Direction() != (mgl32.Vec3{0, 0, -1}) {
		t.Errorf("Direction = %v, want (0,0,-1)", l.Direction())
	}
	l.SetDirection(mgl32.Vec3{})
	if l.Direction() != (mgl32.Vec3{}) {
		t.Errorf("zero direction = %v, want zero", l.Direction())
	}
}

func TestSoftDirectionalLight(t *testing.T) {
	l := NewSoftDirectionalLight([3]float32{1, 0.5, 0}, 2, 0.3)
	if l.Type() != LightTypeDirectional {
		t.Errorf("Type = %v, want directional", l.Type())
	}
	if l.Softness() != 0.3 || l.Intensity() != 2 {
		t.Errorf("softness/intensity = %v/%v", l.Softness(), l.Intensity())
	}
	l.SetSoftness(4)
	if l.Softness() != 1 {
		t.Errorf("Softness = %v, want clamped 1", l.Softness())
	}
}

func TestEnvironmentMapLoadsOnce(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4))); err != nil {
		t.Fatal(err)
	}
	env := NewEnvironmentMap(common.TextureSource{Data: buf.Bytes()})
	first, err := env.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Width != 8 || first.Height != 4 {
		t.Errorf("size = %dx%d, want 8x4", first.Width, first.Height)
	}
	second, _ := env.Load()
	if &first.Pixels[0] != &second.Pixels[0] {
		t.Error("second Load should reuse the cached pixels")
	}

	bad := NewEnvironmentMap(common.TextureSource{})
	if _, err := bad.Load(); err == nil {
		t.Error("empty source should fail to load")
	}
}

func TestEnvironmentMapMaxSizeDefault(t *testing.T) {
	if got := NewEnvironmentMap(common.TextureSource{}).source.MaxSize; got != DefaultEnvironmentMaxSize {
		t.Errorf("MaxSize = %d, want default %d", got, DefaultEnvironmentMaxSize)
	}
	if got := NewEnvironmentMap(common.TextureSource{MaxSize: 64}).source.MaxSize; got != 64 {
		t.Errorf("MaxSize = %d, want 64", got)
	}
}

func TestMarshalLightBuffer(t *testing.T) {
	env := NewEnvironmentMapFromPixels(common.TextureStagingData{Pixels: make([]byte, 4), Width: 1, Height: 1})
	lights := []Light{
		NewLight(LightTypeAmbient, WithColor(1, 0, 0), WithIntensity(0.5)),
		NewLight(LightTypeAmbient, WithColor(0, 1, 0), WithIntensity(0.25)),
		NewSoftDirectionalLight([3]float32{1, 1, 1}, 3, 0.2),
		NewLight(LightTypePoint, WithEnabled(false)),
		NewEnvironmentLight(env, WithIntensity(1.5)),
		NewLight(LightTypeSpot, WithPosition(1, 2, 3)),
	}

	buf := MarshalLightBuffer(lights)
	if len(buf) != 32+2*64 {
		t.Fatalf("len(buf) = %d, want %d", len(buf), 32+2*64)
	}
	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	u := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	if f(0) != 0.5 || f(4) != 0.25 || f(8) != 0 {
		t.Errorf("ambient = (%v,%v,%v), want (0.5,0.25,0)", f(0), f(4), f(8))
	}
	if u(12) != 2 {
		t.Errorf("light count = %d, want 2", u(12))
	}
	if u(16) != 1 || f(20) != 1.5 {
		t.Errorf("environment = %d/%v, want 1/1.5", u(16), f(20))
	}
	if u(32+12) != uint32(LightTypeDirectional) || f(32+56) != 0.2 {
		t.Errorf("first light type/softness = %d/%v", u(32+12), f(32+56))
	}
	if u(96+12) != uint32(LightTypeSpot) || f(96+4) != 2 {
		t.Errorf("second light type/position.y = %d/%v", u(96+12), f(96+4))
	}
}

func TestEnvironmentOf(t *testing.T) {
	if EnvironmentOf([]Light{NewLight(LightTypePoint)}) != nil {
		t.Error("EnvironmentOf should be nil without an environment light")
	}
	if EnvironmentOf([]Light{NewLight(LightTypeEnvironment)}) != nil {
		t.Error("an environment light without a map should be ignored")
	}
}
