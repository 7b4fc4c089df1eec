package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

func testPrimitive(name string) model.Primitive {
	return model.NewPrimitive(
		model.WithName(name),
		model.WithPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}),
		model.WithIndices([]uint32{0, 1, 2}),
	)
}

func testTexture(t *testing.T, name string) *common.ImportedTexture {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 1, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test texture: %v", err)
	}
	return &common.ImportedTexture{Name: name, Data: buf.Bytes(), MimeType: "image/png"}
}

func TestAcquireGeometryDedupesByContentIdentity(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	p := testPrimitive("tri")
	first, err := cache.AcquireGeometry(p)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := cache.AcquireGeometry(p)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if first != second {
		t.Errorf("same primitive produced two handles: %d, %d", first, second)
	}

	other, err := cache.AcquireGeometry(testPrimitive("tri2"))
	if err != nil {
		t.Fatalf("other acquire: %v", err)
	}
	if other == first {
		t.Error("distinct primitives shared a handle")
	}

	stats := cache.Stats()
	if stats.Geometries != 2 || stats.Hits != 1 || stats.Misses != 2 {
		t.Errorf("stats = %+v, want 2 geometries, 1 hit, 2 misses", stats)
	}
}

func TestAcquireGeometryUploadsIndices(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	id, err := cache.AcquireGeometry(testPrimitive("tri"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	upload, ok := backend.GeometryFor(id)
	if !ok {
		t.Fatal("backend has no record of the upload")
	}
	if upload.VertexCount != 3 || upload.IndexCount != 3 {
		t.Errorf("counts = %d vertices, %d indices", upload.VertexCount, upload.IndexCount)
	}
	if len(upload.VertexData) != 3*64 {
		t.Errorf("vertex data = %d bytes, want %d", len(upload.VertexData), 3*64)
	}
	// Little-endian uint32 indices 0, 1, 2.
	want := []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}
	if !bytes.Equal(upload.IndexData, want) {
		t.Errorf("index data = %v", upload.IndexData)
	}
}

func TestAcquireGeometryFailureNotMemoized(t *testing.T) {
	backend := NewRecordingBackend()
	backend.FailGeometry = 0
	cache := NewResourceCache(backend, shader.NewSelector())

	p := testPrimitive("tri")
	if _, err := cache.AcquireGeometry(p); err == nil {
		t.Fatal("expected injected upload failure")
	}

	backend.FailGeometry = -1
	id, err := cache.AcquireGeometry(p)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if id == 0 {
		t.Error("retry returned zero handle")
	}
	stats := cache.Stats()
	if stats.Hits != 0 || stats.Misses != 2 {
		t.Errorf("failure was memoized: %+v", stats)
	}
}

func TestAcquireTextureDedupesAndKeysOnEncoding(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	tex := testTexture(t, "albedo")
	srgb, err := cache.AcquireTexture(tex, true)
	if err != nil {
		t.Fatalf("srgb acquire: %v", err)
	}
	again, err := cache.AcquireTexture(tex, true)
	if err != nil {
		t.Fatalf("repeat acquire: %v", err)
	}
	if srgb != again {
		t.Errorf("same texture produced two handles: %d, %d", srgb, again)
	}

	// A linear view of the same source texture is a distinct GPU resource.
	linear, err := cache.AcquireTexture(tex, false)
	if err != nil {
		t.Fatalf("linear acquire: %v", err)
	}
	if linear == srgb {
		t.Error("srgb and linear uploads shared a handle")
	}
	if stats := cache.Stats(); stats.Textures != 2 {
		t.Errorf("textures cached = %d, want 2", stats.Textures)
	}
}

func TestAcquireTextureFailureNotMemoized(t *testing.T) {
	backend := NewRecordingBackend()
	backend.FailTextures = 0
	cache := NewResourceCache(backend, shader.NewSelector())

	tex := testTexture(t, "albedo")
	if _, err := cache.AcquireTexture(tex, true); err == nil {
		t.Fatal("expected injected upload failure")
	}

	backend.FailTextures = -1
	if _, err := cache.AcquireTexture(tex, true); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestAcquireProgramSharesNormalizedVariants(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	// Shadow-pass keys differ only on axes the depth-only variant ignores.
	a := shader.VariantKey{
		Pass:       shader.PassShadow,
		Mode:       shader.ModeLit,
		Attributes: model.AttrNormal | model.AttrTexCoord,
	}
	b := shader.VariantKey{
		Pass:         shader.PassShadow,
		Mode:         shader.ModeUnlit,
		Attributes:   model.AttrColor,
		PointShadows: true,
	}
	cfg := ProgramConfig{Cull: CullFront}

	idA, err := cache.AcquireProgram(a, cfg)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	idB, err := cache.AcquireProgram(b, cfg)
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	if idA != idB {
		t.Errorf("normalized-equal keys produced two programs: %d, %d", idA, idB)
	}
	key, ok := backend.ProgramKeyFor(idA)
	if !ok {
		t.Fatal("backend has no record of the program")
	}
	if key != a.Normalize() {
		t.Errorf("program compiled for %+v, want normalized key", key)
	}
}

func TestAcquireProgramConfigIsPartOfTheKey(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	key := shader.VariantKey{Pass: shader.PassForward, Mode: shader.ModeLit, Attributes: model.AttrNormal}
	opaque, err := cache.AcquireProgram(key, ProgramConfig{Cull: CullBack})
	if err != nil {
		t.Fatalf("opaque acquire: %v", err)
	}
	blended, err := cache.AcquireProgram(key, ProgramConfig{Cull: CullBack, Blend: true})
	if err != nil {
		t.Fatalf("blended acquire: %v", err)
	}
	if opaque == blended {
		t.Error("blend state should produce a distinct pipeline")
	}
}

// failingSelector returns a compile error on every lookup and counts them.
type failingSelector struct {
	calls int
}

func (s *failingSelector) Variant(key shader.VariantKey) (shader.Variant, error) {
	s.calls++
	return nil, &shader.CompileError{Key: key.Normalize(), Diagnostic: "injected"}
}

func (s *failingSelector) Count() int { return 0 }
func (s *failingSelector) Clear()     {}

func TestAcquireProgramCompileErrorNotCached(t *testing.T) {
	sel := &failingSelector{}
	cache := NewResourceCache(NewRecordingBackend(), sel)

	key := shader.VariantKey{Pass: shader.PassForward, Mode: shader.ModeLit}
	for i := 0; i < 2; i++ {
		if _, err := cache.AcquireProgram(key, ProgramConfig{}); err == nil {
			t.Fatal("expected compile error")
		}
	}
	if sel.calls != 2 {
		t.Errorf("selector called %d times, want 2 (failures must not be cached)", sel.calls)
	}
}

func TestReleaseAllResetsTheCache(t *testing.T) {
	backend := NewRecordingBackend()
	cache := NewResourceCache(backend, shader.NewSelector())

	p := testPrimitive("tri")
	if _, err := cache.AcquireGeometry(p); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	cache.ReleaseAll()

	if backend.Released() != 1 {
		t.Errorf("backend released %d times, want 1", backend.Released())
	}
	stats := cache.Stats()
	if stats.Geometries != 0 || stats.Textures != 0 || stats.Programs != 0 {
		t.Errorf("cache not empty after release: %+v", stats)
	}

	// Re-acquiring after teardown uploads fresh resources.
	if _, err := cache.AcquireGeometry(p); err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	found := false
	for _, op := range backend.OpNames() {
		if op == "ReleaseAll" {
			found = true
		}
	}
	if !found {
		t.Error("ReleaseAll not recorded on the backend")
	}
}
