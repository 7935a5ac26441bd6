package embedded

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	flac "github.com/go-flac/go-flac"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeMP3(t *testing.T, path string, pic []byte) {
	t.Helper()
	tg := id3v2.NewEmptyTag()
	tg.SetTitle("Come Together")
	if pic != nil {
		tg.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/png",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     pic,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := tg.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	// a few bytes standing in for MPEG frames
	if _, err := f.Write([]byte{0xFF, 0xFB, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00}); err != nil {
		t.Fatal(err)
	}
}

func pictureBlock(data []byte, mime string) flac.MetaDataBlock {
	pic := flacpicture.MetadataBlockPicture{
		PictureType: flacpicture.PictureTypeFrontCover,
		MIME:        mime,
		Description: "Front",
		Width:       2,
		Height:      2,
		ColorDepth:  32,
		ImageData:   data,
	}
	return pic.Marshal()
}

func writeFLAC(t *testing.T, path string, pic []byte) {
	t.Helper()
	streamInfo := flac.MetaDataBlock{Type: flac.StreamInfo, Data: make([]byte, 34)}
	f := &flac.File{Meta: []*flac.MetaDataBlock{&streamInfo}}
	if pic != nil {
		block := pictureBlock(pic, "image/png")
		f.Meta = append(f.Meta, &block)
	}
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}
}

// capturingStore records the content behind every URI at write time.
type capturingStore struct {
	mu      sync.Mutex
	uri     string
	prov    artwork.Provenance
	content []byte
	writes  int
}

func (s *capturingStore) Lookup(ctx context.Context, key artwork.AlbumKey) (*artwork.Entry, error) {
	return nil, nil
}

func (s *capturingStore) WriteBytes(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.prov = prov
	s.content = data
	return nil
}

func (s *capturingStore) WriteURI(ctx context.Context, key artwork.AlbumKey, prov artwork.Provenance, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.uri = uri
	s.prov = prov
	if path, err := artwork.LocalPath(uri, nil); err == nil {
		s.content, _ = os.ReadFile(path)
	}
	return nil
}

func (s *capturingStore) WriteTombstone(ctx context.Context, key artwork.AlbumKey, location string) error {
	return nil
}
