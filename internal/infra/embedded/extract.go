package embedded

import (
	"errors"
	"fmt"
	"os"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	flac "github.com/go-flac/go-flac"

	"github.com/edumarques81/stellar-coverart/internal/domain/artwork"
)

var errNoPicture = errors.New("no picture")

// Picture is an image pulled out of an audio file's tags.
type Picture struct {
	Data     []byte
	MIMEType string
	Format   string // container the picture came from
}

type extractor struct {
	format string
	fn     func(path string) (*Picture, error)
}

// extractors run in this order; the first picture found wins.
var extractors = []extractor{
	{"mp4", extractMP4},
	{"flac", extractFLAC},
	{"ogg", extractOgg},
	{"id3", extractID3},
}

// ExtractPicture returns the cover image embedded in path.
func ExtractPicture(path string) (*Picture, error) {
	var errs []error
	for _, e := range extractors {
		pic, err := e.fn(path)
		if err == nil && pic != nil && len(pic.Data) > 0 {
			pic.Format = e.format
			if mt := artwork.DetectMimeType(pic.Data); mt != "application/octet-stream" || pic.MIMEType == "" {
				pic.MIMEType = mt
			}
			return pic, nil
		}
		if err == nil {
			err = errNoPicture
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.format, err))
	}
	return nil, fmt.Errorf("%w: %v", artwork.ErrExtractionFailed, errors.Join(errs...))
}

func fromTagPicture(p *tag.Picture) (*Picture, error) {
	if p == nil || len(p.Data) == 0 {
		return nil, errNoPicture
	}
	return &Picture{Data: p.Data, MIMEType: p.MIMEType}, nil
}

func extractMP4(path string) (*Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadAtoms(f)
	if err != nil {
		return nil, err
	}
	return fromTagPicture(m.Picture())
}

func extractFLAC(path string) (*Picture, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	var first *flacpicture.MetadataBlockPicture
	for _, block := range f.Meta {
		if block.Type != flac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*block)
		if err != nil || len(pic.ImageData) == 0 {
			continue
		}
		if pic.PictureType == flacpicture.PictureTypeFrontCover {
			return &Picture{Data: pic.ImageData, MIMEType: pic.MIME}, nil
		}
		if first == nil {
			first = pic
		}
	}
	if first == nil {
		return nil, errNoPicture
	}
	return &Picture{Data: first.ImageData, MIMEType: first.MIME}, nil
}

func extractOgg(path string) (*Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadOGGTags(f)
	if err != nil {
		return nil, err
	}
	if pic, err := pictureFromVorbisComments(m.Raw()); err == nil {
		return pic, nil
	}
	// the tag reader decodes METADATA_BLOCK_PICTURE itself
	return fromTagPicture(m.Picture())
}

func extractID3(path string) (*Picture, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var first *id3v2.PictureFrame
	for _, fr := range t.GetFrames(t.CommonID("Attached picture")) {
		apic, ok := fr.(id3v2.PictureFrame)
		if !ok || len(apic.Picture) == 0 {
			continue
		}
		if apic.PictureType == id3v2.PTFrontCover {
			return &Picture{Data: apic.Picture, MIMEType: apic.MimeType}, nil
		}
		if first == nil {
			first = &apic
		}
	}
	if first == nil {
		return nil, errNoPicture
	}
	return &Picture{Data: first.Picture, MIMEType: first.MimeType}, nil
}
